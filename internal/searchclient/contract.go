package searchclient

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/makan/internal/worker"
)

// Worker is the client's view of an embedding worker.
type Worker interface {
	Post(req worker.Request) error
	Messages() <-chan worker.Response
	Err() error
	Terminate()
}

// Spawner constructs a fresh worker. Construction must not wait for the model.
type Spawner func() (Worker, error)

// NewSpawner adapts worker.Spawn to a Spawner.
func NewSpawner(loader worker.ModelLoader, logger *zap.Logger) Spawner {
	return func() (Worker, error) {
		w, err := worker.Spawn(loader, logger)
		if err != nil {
			// Return a nil interface, not a typed nil *worker.Worker.
			return nil, err
		}
		return w, nil
	}
}
