package game

// RoundSource derives the RNG for a crash round from its seed and ID. The
// crash point and the roster are both drawn from it.
func RoundSource(serverSeed, roundID string) Source {
	return NewSeededRNG(serverSeed + "-" + roundID)
}

// VerifyCrashPoint replays the draw order of a round (roster first, then the
// crash point) and returns the crash point the revealed seed commits to.
func VerifyCrashPoint(curve CrashCurve, serverSeed, roundID string) float64 {
	src := RoundSource(serverSeed, roundID)
	GenerateRoster(src)
	return curve.DrawCrashPoint(src)
}
