package transform

import (
	"math"
	"time"
)

// julianUnixEpoch is the Julian Date of 1970-01-01T00:00:00Z.
const julianUnixEpoch = 2440587.5

// j2000 is the Julian Date of 2000-01-01T12:00:00.
const j2000 = 2451545.0

const secondsPerDay = 86400.0

// JulianDate returns the Julian Date of t. UTC is used as UT1.
func JulianDate(t time.Time) float64 {
	return julianUnixEpoch + float64(t.UnixNano())/1e9/secondsPerDay
}

// GMST returns Greenwich Mean Sidereal Time in radians, [0, 2π), using the
// IAU-82 expression (Vallado eq. 3-47) with T in Julian centuries from J2000.
func GMST(t time.Time) float64 {
	tc := (JulianDate(t) - j2000) / 36525.0

	// 876600 h = 3155760000 s.
	sec := 67310.54841 + (3155760000.0+8640184.812866)*tc + 0.093104*tc*tc - 6.2e-6*tc*tc*tc
	sec = math.Mod(sec, secondsPerDay)
	if sec < 0 {
		sec += secondsPerDay
	}
	return sec / secondsPerDay * 2 * math.Pi
}
