package skill

import "testing"

func TestRate1v1WinnerGainsLoserLoses(t *testing.T) {
	winner := NewRating()
	loser := NewRating()

	newWinner, newLoser := Rate1v1(winner, loser)

	if newWinner.Mu <= winner.Mu {
		t.Errorf("expected winner mu to increase, got %v -> %v", winner.Mu, newWinner.Mu)
	}
	if newLoser.Mu >= loser.Mu {
		t.Errorf("expected loser mu to decrease, got %v -> %v", loser.Mu, newLoser.Mu)
	}
	if newWinner.Sigma >= winner.Sigma {
		t.Errorf("expected winner uncertainty to shrink, got %v -> %v", winner.Sigma, newWinner.Sigma)
	}
}

func TestRate1v1DrawMovesTowardEachOther(t *testing.T) {
	strong := Rating{Mu: 30, Sigma: defaultSigma}
	weak := Rating{Mu: 20, Sigma: defaultSigma}

	newStrong, newWeak := Rate1v1Draw(strong, weak)

	if newStrong.Mu >= strong.Mu {
		t.Errorf("expected stronger player's mu to fall after a draw, got %v -> %v", strong.Mu, newStrong.Mu)
	}
	if newWeak.Mu <= weak.Mu {
		t.Errorf("expected weaker player's mu to rise after a draw, got %v -> %v", weak.Mu, newWeak.Mu)
	}
}

func TestQuality1v1SymmetricAndBounded(t *testing.T) {
	a := Rating{Mu: 28, Sigma: 5}
	b := Rating{Mu: 22, Sigma: 6}

	qab := Quality1v1(a, b)
	qba := Quality1v1(b, a)

	if qab != qba {
		t.Errorf("expected symmetric quality, got %v vs %v", qab, qba)
	}
	if qab <= 0 || qab > 1 {
		t.Errorf("expected quality in (0, 1], got %v", qab)
	}

	qEven := Quality1v1(Rating{Mu: 25, Sigma: 5}, Rating{Mu: 25, Sigma: 6})
	if qEven <= qab {
		t.Errorf("expected evenly matched ratings to score higher quality: %v <= %v", qEven, qab)
	}
}
