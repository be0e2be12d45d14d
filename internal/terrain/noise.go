package terrain

import "math"

func (g *Generator) fractalNoise(x, z float64) float64 {
	frequency := g.cfg.Frequency
	amplitude := 1.0
	noiseSum := 0.0
	maxAmplitude := 0.0

	for i := 0; i < g.cfg.Octaves; i++ {
		noise := g.valueNoise(x*frequency, z*frequency)
		noiseSum += noise * amplitude
		maxAmplitude += amplitude
		amplitude *= g.cfg.Persistence
		frequency *= g.cfg.Lacunarity
	}

	if maxAmplitude == 0 {
		return 0
	}
	return noiseSum / maxAmplitude
}

func (g *Generator) valueNoise(x, z float64) float64 {
	x0 := int(math.Floor(x))
	z0 := int(math.Floor(z))
	x1 := x0 + 1
	z1 := z0 + 1

	sx := smooth(x - float64(x0))
	sz := smooth(z - float64(z0))

	ix0 := lerp(random2D(x0, z0, g.cfg.Seed), random2D(x1, z0, g.cfg.Seed), sx)
	ix1 := lerp(random2D(x0, z1, g.cfg.Seed), random2D(x1, z1, g.cfg.Seed), sx)
	return lerp(ix0, ix1, sz)
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// random2D maps a lattice point to [-1, 1).
func random2D(x, z int, seed int64) float64 {
	return float64(hash3(x, z, int(seed))&0xFFFF)/0x8000 - 1.0
}

// chance maps a lattice point and salt to [0, 1].
func chance(x, z int, seed int64, salt int) float64 {
	return float64(hash3(x, z, int(seed)^salt)&0xFFFF) / 0xFFFF
}

func hash3(x, y, z int) uint32 {
	h := uint32(x*374761393 + y*668265263 + z*2147483647)
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}
