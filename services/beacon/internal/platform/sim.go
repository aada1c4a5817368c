package platform

import (
	"math/rand/v2"

	"tempbeacon-go/internal/sim"
	"tempbeacon-go/types"
	"tempbeacon-go/x/mathx"
)

// openSim wires a simulated HDC2080 whose readings drift slowly around
// 21 °C / 45 %RH, and a recording radio.
func openSim(opt Options) *Platform {
	start := types.RawSample{TempCounts: 24000, HumidityCounts: 29500}
	dev := sim.NewHDC2080(start)
	dev.Next = walk(start, rand.New(rand.NewPCG(1, 2)))

	opt.Log.Info("platform: simulation")
	return &Platform{Name: "sim", BusName: "sim", Bus: dev, Stack: sim.NewRadio()}
}

func walk(cur types.RawSample, rng *rand.Rand) func() types.RawSample {
	step := func(v uint16, span int32) uint16 {
		n := int32(v) + rng.Int32N(2*span+1) - span
		return uint16(mathx.Clamp(n, 0, 65535))
	}
	return func() types.RawSample {
		cur.TempCounts = step(cur.TempCounts, 40)
		cur.HumidityCounts = step(cur.HumidityCounts, 120)
		return cur
	}
}
