package env

import "testing"

func TestHockeyEnvDeterministicGivenSeed(t *testing.T) {
	actions := []JointAction{
		{0.5, 0, 0, 1, -0.5, 0, 0, 1},
		{1, 0.2, 0, 1, -1, -0.2, 0, 1},
		{0, 0, 0.3, 0, 0, 0, -0.3, 0},
	}

	run := func() []Observation {
		e := NewHockeyEnv(42)
		e.Reset(0)
		var obs []Observation
		for _, a := range actions {
			o, _, _, _ := e.Step(a)
			obs = append(obs, o)
		}
		return obs
	}

	first := run()
	second := run()

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("step %d diverged: %v != %v", i, first[i], second[i])
		}
	}
}

func TestHockeyEnvEpisodeTerminatesWithinStepBudget(t *testing.T) {
	e := NewHockeyEnv(1)
	e.Reset(0)

	done := false
	for i := 0; i < maxStepsPerEp; i++ {
		_, _, d, _ := e.Step(JointAction{1, 0, 0, 1, 0, 0, 0, 0})
		if d {
			done = true
			break
		}
	}
	if !done {
		t.Fatalf("expected episode to terminate within %d steps", maxStepsPerEp)
	}
}

func TestObsForSideMirrorsCoordinates(t *testing.T) {
	e := NewHockeyEnv(7)
	e.Reset(0)
	e.Step(JointAction{0.1, 0, 0, 0, 0, 0, 0, 0})

	side0 := e.ObsForSide(0)
	side1 := e.ObsForSide(1)

	if side0[0] != -side1[6] {
		t.Errorf("side0 self.x should equal mirrored side1 opponent.x: %v != -(%v)", side0[0], side1[6])
	}
}
