package utils

import (
	"os"
	"path/filepath"
	"strings"
)

func GetFilename(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func OpenFile(makeDir bool, outputPath string, fileSuffix, modelName string) (*os.File, error) {
	if outputPath != "" && !strings.HasSuffix(outputPath, "/") {
		outputPath += "/"
	}
	if makeDir && fileSuffix != "" && fileSuffix != "." {
		if err := os.MkdirAll(outputPath+fileSuffix, 0750); err != nil {
			return nil, err
		}
		return os.Create(outputPath + fileSuffix + "/" + modelName + ".txt")
	}
	if outputPath != "" {
		if err := os.MkdirAll(outputPath, 0750); err != nil {
			return nil, err
		}
	}
	return os.Create(outputPath + modelName + "_" + fileSuffix + ".txt")
}
