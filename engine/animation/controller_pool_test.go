package animation

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/model/modeltest"
)

func TestControllerPoolUpdatesAll(t *testing.T) {
	mesh := modeltest.ChainMesh(2)
	pool := NewControllerPool(3)
	if pool.Workers() != 3 {
		t.Fatalf("Workers = %d, want 3", pool.Workers())
	}

	controllers := make([]Controller, 8)
	for i := range controllers {
		c, err := NewController(mesh, WithClipName("Lift", true))
		if err != nil {
			t.Fatalf("NewController: %v", err)
		}
		controllers[i] = c
	}

	for frame := 0; frame < 4; frame++ {
		pool.Update(0.25, controllers...)
	}

	for i, c := range controllers {
		if !near(c.Time(), 1) {
			t.Fatalf("controller %d time = %f, want 1", i, c.Time())
		}
	}
}

func TestControllerPoolSingleAndNil(t *testing.T) {
	pool := NewControllerPool(0)
	if pool.Workers() < 1 {
		t.Fatalf("Workers = %d, want >= 1", pool.Workers())
	}

	c, err := NewController(modeltest.ChainMesh(1), WithClip(0, false))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	pool.Update(0.5, c)
	pool.Update(0.5, nil, c)
	if !near(c.Time(), 1) {
		t.Fatalf("Time = %f, want 1", c.Time())
	}
}
