// Package env adapts the opaque 2D hockey simulation the server plays
// matches on. The physics are out of scope for the server (see spec.md
// §1); this package provides the fixed observation/action schema and a
// deterministic reference implementation so the rest of the server has a
// concrete Environment to drive.
package env

import "math/rand"

// Observation is the 16-real state vector: indices 0-5 are the
// self-player (x, y, angle, vx, vy, angular velocity), 6-11 the opponent
// in the same layout, 12-15 the puck (x, y, vx, vy).
type Observation [16]float64

// JointAction is the concatenation of both sides' 4-real actions.
type JointAction [8]float64

// Info carries at least a "winner" key on the terminal tick of an episode.
type Info map[string]any

// Environment is the fixed interface the Game drives. Implementations must
// be deterministic given their seed.
type Environment interface {
	// Reset starts a new episode, returning the observation for side 0.
	// startingSide selects which side's puck possession/position bias
	// is favored, alternating by episode per the match rules.
	Reset(startingSide int) Observation

	// Step advances the simulation by one tick given both sides' actions
	// concatenated into a single joint vector (side 0's 4 reals followed
	// by side 1's).
	Step(joint JointAction) (obs Observation, reward float64, done bool, info Info)

	// ObsForSide returns the last computed observation mirrored for the
	// requested side (0 or 1); side 1's coordinates are mirrored so each
	// player always sees themselves as "self".
	ObsForSide(side int) Observation

	// Close releases any resources held by the environment instance.
	Close() error
}

const (
	rinkHalfLength = 10.0
	rinkHalfWidth  = 4.0
	maxStepsPerEp  = 250
	puckSpeedCap   = 8.0
)

// HockeyEnv is a simplified deterministic stand-in for the real physics
// simulator: two players and a puck on a rectangular rink, actions are
// (dx, dy, dAngle, shoot-strength) accelerations, and an episode ends when
// the puck crosses either goal line or the step budget is exhausted (a
// scoreless draw).
type HockeyEnv struct {
	rng *rand.Rand

	selfPos, selfVel       [2]float64
	selfAngle, selfAngVel  float64
	oppPos, oppVel         [2]float64
	oppAngle, oppAngVel    float64
	puckPos, puckVel       [2]float64
	steps                  int
	lastObs                Observation
	lastObsTwo             Observation
}

// NewHockeyEnv returns a fresh environment seeded for reproducible replay.
func NewHockeyEnv(seed int64) *HockeyEnv {
	return &HockeyEnv{rng: rand.New(rand.NewSource(seed))}
}

func (e *HockeyEnv) Reset(startingSide int) Observation {
	e.steps = 0
	e.selfPos = [2]float64{-rinkHalfLength / 2, 0}
	e.oppPos = [2]float64{rinkHalfLength / 2, 0}
	e.selfVel, e.oppVel = [2]float64{}, [2]float64{}
	e.selfAngle, e.oppAngle = 0, 0
	e.selfAngVel, e.oppAngVel = 0, 0

	if startingSide == 0 {
		e.puckPos = [2]float64{-0.5, 0}
	} else {
		e.puckPos = [2]float64{0.5, 0}
	}
	e.puckVel = [2]float64{}

	e.lastObs = e.observe(false)
	e.lastObsTwo = e.observe(true)
	return e.lastObs
}

func (e *HockeyEnv) Step(joint JointAction) (Observation, float64, bool, Info) {
	e.steps++

	selfAction := [4]float64{joint[0], joint[1], joint[2], joint[3]}
	oppAction := [4]float64{joint[4], joint[5], joint[6], joint[7]}

	applyAction(&e.selfPos, &e.selfVel, &e.selfAngle, &e.selfAngVel, selfAction)
	applyAction(&e.oppPos, &e.oppVel, &e.oppAngle, &e.oppAngVel, oppAction)

	// puck drifts; a player within reach who shoots (action[3] > 0.5) sets
	// its velocity, side 1 taking precedence when both do.
	e.puckPos[0] += e.puckVel[0]
	e.puckPos[1] += e.puckVel[1]
	e.puckVel[0] *= 0.98
	e.puckVel[1] *= 0.98

	if dist(e.selfPos, e.puckPos) < 0.36 && selfAction[3] > 0.5 {
		e.puckVel[0] = clamp(selfAction[0]*puckSpeedCap, -puckSpeedCap, puckSpeedCap)
		e.puckVel[1] = clamp(selfAction[1]*puckSpeedCap, -puckSpeedCap, puckSpeedCap)
	}
	if dist(e.oppPos, e.puckPos) < 0.36 && oppAction[3] > 0.5 {
		e.puckVel[0] = clamp(-oppAction[0]*puckSpeedCap, -puckSpeedCap, puckSpeedCap)
		e.puckVel[1] = clamp(-oppAction[1]*puckSpeedCap, -puckSpeedCap, puckSpeedCap)
	}

	e.puckPos[1] = clamp(e.puckPos[1], -rinkHalfWidth, rinkHalfWidth)

	done := false
	reward := 0.0
	winner := 0

	switch {
	case e.puckPos[0] > rinkHalfLength:
		done, reward, winner = true, 1.0, 1
	case e.puckPos[0] < -rinkHalfLength:
		done, reward, winner = true, -1.0, -1
	case e.steps >= maxStepsPerEp:
		done, reward, winner = true, 0, 0
	}

	e.lastObs = e.observe(false)
	e.lastObsTwo = e.observe(true)

	info := Info{}
	if done {
		info["winner"] = winner
	}
	return e.lastObs, reward, done, info
}

func (e *HockeyEnv) ObsForSide(side int) Observation {
	if side == 1 {
		return e.lastObsTwo
	}
	return e.lastObs
}

func (e *HockeyEnv) Close() error {
	return nil
}

func (e *HockeyEnv) observe(mirror bool) Observation {
	self, opp, puck := e.selfPos, e.oppPos, e.puckPos
	selfVel, oppVel, puckVel := e.selfVel, e.oppVel, e.puckVel
	selfAngle, oppAngle := e.selfAngle, e.oppAngle
	selfAngVel, oppAngVel := e.selfAngVel, e.oppAngVel

	if mirror {
		self, opp = opp, self
		selfVel, oppVel = oppVel, selfVel
		selfAngle, oppAngle = oppAngle, selfAngle
		selfAngVel, oppAngVel = oppAngVel, selfAngVel
		self[0], opp[0], puck[0] = -self[0], -opp[0], -puck[0]
		selfVel[0], oppVel[0], puckVel[0] = -selfVel[0], -oppVel[0], -puckVel[0]
	}

	return Observation{
		self[0], self[1], selfAngle, selfVel[0], selfVel[1], selfAngVel,
		opp[0], opp[1], oppAngle, oppVel[0], oppVel[1], oppAngVel,
		puck[0], puck[1], puckVel[0], puckVel[1],
	}
}

func applyAction(pos, vel *[2]float64, angle, angVel *float64, action [4]float64) {
	vel[0] = clamp(vel[0]+action[0]*0.2, -1, 1)
	vel[1] = clamp(vel[1]+action[1]*0.2, -1, 1)
	pos[0] = clamp(pos[0]+vel[0], -rinkHalfLength, rinkHalfLength)
	pos[1] = clamp(pos[1]+vel[1], -rinkHalfWidth, rinkHalfWidth)
	*angVel = clamp(*angVel+action[2]*0.1, -1, 1)
	*angle += *angVel
}

// dist returns the squared Euclidean distance between a and b.
func dist(a, b [2]float64) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
