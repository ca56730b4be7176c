package fixedpoint

// Integer-only CORDIC trigonometry. The engine never calls into the host's
// native float unit for sin/cos/atan2 — every step below is a table lookup,
// a shift, and an add, so the same sequence of integers comes out on every
// participant's hardware regardless of its native float implementation.

const cordicIterations = 17

// atanTable holds atan(2^-i) for i in [0, cordicIterations) as Q16.16
// literals, generated once and frozen here rather than computed at init —
// the values themselves, not the generation, are what every participant
// must agree on.
var atanTable = [cordicIterations]int64{
	51472, 30386, 16055, 8150, 4091, 2047, 1024, 512,
	256, 128, 64, 32, 16, 8, 4, 2, 1,
}

// cordicGainInv is 1/K in Q16.16, where K is the CORDIC rotation gain
// (the product of cos(atan(2^-i)) over all iterations).
const cordicGainInv Q = 39797

// Angle constants in Q16.16 radians.
const (
	Pi     Q = 205887
	HalfPi Q = 102944
	TwoPi  Q = 411775
)

// wrapAngle reduces theta to (-Pi, Pi].
func wrapAngle(theta Q) Q {
	t := int64(theta)
	two := int64(TwoPi)
	t %= two
	if t > int64(Pi) {
		t -= two
	}
	if t <= -int64(Pi) {
		t += two
	}
	return Q(t)
}

// SinCos computes sin and cos of theta (Q16.16 radians) in one CORDIC pass.
func SinCos(theta Q) (sin, cos Q) {
	t := wrapAngle(theta)
	negate := false
	if t > HalfPi {
		t -= Pi
		negate = true
	} else if t < -HalfPi {
		t += Pi
		negate = true
	}

	x := int64(cordicGainInv)
	y := int64(0)
	z := int64(t)
	for i := 0; i < cordicIterations; i++ {
		dx := y >> uint(i)
		dy := x >> uint(i)
		if z >= 0 {
			x -= dx
			y += dy
			z -= atanTable[i]
		} else {
			x += dx
			y -= dy
			z += atanTable[i]
		}
	}
	if negate {
		x, y = -x, -y
	}
	return Q(y), Q(x)
}

// Sin returns sin(theta) for theta in Q16.16 radians.
func Sin(theta Q) Q { s, _ := SinCos(theta); return s }

// Cos returns cos(theta) for theta in Q16.16 radians.
func Cos(theta Q) Q { _, c := SinCos(theta); return c }

// Atan2 returns the angle (Q16.16 radians, in (-Pi, Pi]) between the
// positive x-axis and the point (x, y), via CORDIC vectoring mode.
func Atan2(y, x Q) Q {
	if x == 0 && y == 0 {
		return 0
	}

	x0, y0 := int64(x), int64(y)
	var offset int64
	if x0 < 0 {
		if y0 >= 0 {
			offset = int64(Pi)
		} else {
			offset = -int64(Pi)
		}
		x0, y0 = -x0, -y0
	}

	z := int64(0)
	for i := 0; i < cordicIterations; i++ {
		dx := y0 >> uint(i)
		dy := x0 >> uint(i)
		if y0 >= 0 {
			x0 += dx
			y0 -= dy
			z += atanTable[i]
		} else {
			x0 -= dx
			y0 += dy
			z -= atanTable[i]
		}
	}
	return wrapAngle(Q(z + offset))
}
