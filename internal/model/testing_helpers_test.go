package model

import "github.com/laserhockey/competition-server/internal/env"

// fakeRemote records every call made to it for assertions and can be
// configured to simulate a dead transport.
type fakeRemote struct {
	dead bool

	startsCalls      int
	observationCalls int
	doneCalls        int
	abortedCalls     int
	lastResult       GameResult
	lastMsg          string
}

func (f *fakeRemote) GameStarts(Observation, Info) error {
	f.startsCalls++
	if f.dead {
		return ErrTransportDead
	}
	return nil
}

func (f *fakeRemote) SendObservation(Observation, float64, bool, Info) error {
	f.observationCalls++
	if f.dead {
		return ErrTransportDead
	}
	return nil
}

func (f *fakeRemote) GameDone(_ Observation, _ float64, _ bool, _ Info, result GameResult) error {
	f.doneCalls++
	f.lastResult = result
	if f.dead {
		return ErrTransportDead
	}
	return nil
}

func (f *fakeRemote) GameAborted(msg string) error {
	f.abortedCalls++
	f.lastMsg = msg
	if f.dead {
		return ErrTransportDead
	}
	return nil
}

func (f *fakeRemote) Alive() bool { return !f.dead }

// fakeHub records hub callbacks without doing any real bookkeeping.
type fakeHub struct {
	enqueued  []*Client
	detached  []*Client
	finished  []*Game
	abortedGs []*Game
}

func (f *fakeHub) EnqueueForMatch(c *Client)  { f.enqueued = append(f.enqueued, c) }
func (f *fakeHub) ClientDetached(c *Client)   { f.detached = append(f.detached, c) }
func (f *fakeHub) GameFinished(g *Game)       { f.finished = append(f.finished, g) }
func (f *fakeHub) GameAborted(g *Game)        { f.abortedGs = append(f.abortedGs, g) }

func newTestClient(username string, hub Hub) (*Client, *fakeRemote) {
	remote := &fakeRemote{}
	avatar := NewAvatar(username)
	return NewClient(username+"-client", avatar, remote, hub), remote
}

// scriptedEnv is a minimal deterministic Environment for tests: each Step
// call pops the next queued result.
type scriptedEnv struct {
	results []scriptedStep
	idx     int
	closed  bool
}

type scriptedStep struct {
	obs    Observation
	reward float64
	done   bool
	info   Info
}

func (e *scriptedEnv) Reset(startingSide int) Observation {
	return Observation{}
}

func (e *scriptedEnv) Step(env.JointAction) (Observation, float64, bool, Info) {
	s := e.results[e.idx]
	e.idx++
	return s.obs, s.reward, s.done, s.info
}

func (e *scriptedEnv) ObsForSide(side int) Observation {
	return Observation{}
}

func (e *scriptedEnv) Close() error {
	e.closed = true
	return nil
}
