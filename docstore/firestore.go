package docstore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bitbucket.org/mmdatafocus/crm_backend/utils"
)

// FirestoreBackend adapts a Firestore client to the Backend contract.
// Collection paths are slash-separated (tenants/{tenant}/{collection}).
type FirestoreBackend struct {
	client *firestore.Client
	logger *logrus.Logger
}

func NewFirestoreBackend(client *firestore.Client, logger *logrus.Logger) *FirestoreBackend {
	return &FirestoreBackend{client: client, logger: logger}
}

func (b *FirestoreBackend) Subscribe(ctx context.Context, path string) (<-chan Snapshot, error) {
	ch := make(chan Snapshot, 1)
	go func() {
		defer close(ch)
		backoff := time.Second
		for {
			if ctx.Err() != nil {
				return
			}
			it := b.client.Collection(path).Snapshots(ctx)
			err := b.pump(ctx, path, it, ch)
			it.Stop()
			if ctx.Err() != nil {
				return
			}
			// The iterator is terminal after an error; surface it and
			// reopen so the subscription outlives transient failures.
			b.logger.WithError(err).WithField("path", path).Warn("snapshot stream failed; reopening")
			select {
			case ch <- Snapshot{Err: err}:
			case <-ctx.Done():
				return
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}()
	return ch, nil
}

// pump forwards query snapshots until the iterator fails or ctx ends.
func (b *FirestoreBackend) pump(ctx context.Context, path string, it *firestore.QuerySnapshotIterator, ch chan<- Snapshot) error {
	for {
		qs, err := it.Next()
		if err != nil {
			return err
		}
		docs := make([]Document, 0)
		di := qs.Documents
		for {
			ds, err := di.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}
			docs = append(docs, Document{ID: ds.Ref.ID, Fields: ds.Data()})
		}
		select {
		case ch <- Snapshot{Docs: docs}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *FirestoreBackend) Create(ctx context.Context, path string, fields map[string]any) (string, error) {
	ref, _, err := b.client.Collection(path).Add(ctx, translateSentinels(fields))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

// Update changes only the supplied fields of an existing document. A
// merge-Set would silently create a ghost document for an unknown id,
// so Doc.Update is used instead and NotFound maps to the sentinel.
func (b *FirestoreBackend) Update(ctx context.Context, path string, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range translateSentinels(fields) {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	if len(updates) == 0 {
		return nil
	}
	_, err := b.client.Collection(path).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return utils.ErrorRecordNotFound
	}
	return err
}

func (b *FirestoreBackend) Get(ctx context.Context, path string, id string) (Document, error) {
	ds, err := b.client.Collection(path).Doc(id).Get(ctx)
	if ds != nil && !ds.Exists() {
		return Document{}, utils.ErrorRecordNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return Document{ID: ds.Ref.ID, Fields: ds.Data()}, nil
}

// translateSentinels swaps the backend-neutral ServerTimestamp sentinel
// for Firestore's native one, copying the map so callers keep theirs.
func translateSentinels(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = firestore.ServerTimestamp
			continue
		}
		out[k] = v
	}
	return out
}
