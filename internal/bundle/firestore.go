package bundle

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
)

// maxDocumentData leaves headroom under Firestore's 1 MiB document limit.
const maxDocumentData = 1000 * 1024

// bundleDoc is how a bundle is stored in Firestore.
type bundleDoc struct {
	Season     string    `firestore:"season"`
	SchemaHash string    `firestore:"schema_hash"`
	Models     []string  `firestore:"models"`
	Timestamp  time.Time `firestore:"timestamp,serverTimestamp"`
	Data       []byte    `firestore:"data"`
}

// FirestoreStore keeps bundles as gzipped YAML blobs in a Firestore collection.
// Every save adds a document; loads take the newest one for the season.
// The season/timestamp query needs a composite index on the collection.
type FirestoreStore struct {
	Client     *firestore.Client
	Collection string
}

// NewFirestoreStore connects to Firestore in the given project.
func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, err
	}
	return &FirestoreStore{Client: client, Collection: "model_bundles"}, nil
}

// Close closes the underlying client.
func (s *FirestoreStore) Close() error {
	return s.Client.Close()
}

// Save adds a new document for the bundle.
func (s *FirestoreStore) Save(ctx context.Context, b *Bundle) error {
	data, err := compress(b)
	if err != nil {
		return err
	}
	if len(data) > maxDocumentData {
		return fmt.Errorf("bundle for season %s is %d bytes compressed, too large for a Firestore document", b.Season, len(data))
	}
	doc := bundleDoc{
		Season:     b.Season,
		SchemaHash: b.SchemaHash,
		Models:     b.Names(),
		Data:       data,
	}
	_, err = s.Client.Collection(s.Collection).NewDoc().Create(ctx, &doc)
	return err
}

// Load reads the newest bundle stored for the season.
func (s *FirestoreStore) Load(ctx context.Context, season string) (*Bundle, error) {
	iter := s.Client.Collection(s.Collection).
		Where("season", "==", season).
		OrderBy("timestamp", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("%w for season %s in collection %s", ErrNoBundle, season, s.Collection)
	}
	if err != nil {
		return nil, err
	}

	var doc bundleDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return decompress(doc.Data)
}

func compress(b *Bundle) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := b.Encode(zw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) (*Bundle, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return Decode(zr)
}
