package constants

import "math"

const ElectronCharge = 1.602176634e-19 // C

// charge-to-mass ratio of a real electron in code units where qom = 1 for protons
const RealElectronQom float64 = -1836.

const FourPi = 4. * math.Pi

// collision probabilities above this flag an under-resolved timestep
const LikelyCollisionProbability = 0.1
