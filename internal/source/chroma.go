package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/pkg/chromadb"
)

// chromaPageSize bounds one Get call when dumping a collection.
const chromaPageSize = 500

// ChromaSource dumps a Chroma collection's metadata into raw records. Each
// record's metadata map becomes the field map; the document text is carried
// under "document" for reference.
type ChromaSource struct {
	client     chromadb.Client
	collection string
	where      chromadb.Metadata
}

// NewChromaSource creates an adapter reading from the named collection. A
// where filter narrows the dump (nil dumps everything).
func NewChromaSource(client chromadb.Client, collection string, where chromadb.Metadata) *ChromaSource {
	return &ChromaSource{client: client, collection: collection, where: where}
}

func (s *ChromaSource) Name() string {
	return "chroma:" + s.collection
}

func (s *ChromaSource) Fetch(ctx context.Context) ([]model.RawRecord, error) {
	coll, err := s.client.GetOrCreateCollection(ctx, s.collection)
	if err != nil {
		return nil, err
	}

	var records []model.RawRecord
	for offset := 0; ; offset += chromaPageSize {
		result, err := s.client.Get(ctx, coll.ID, s.where, chromaPageSize, offset)
		if err != nil {
			return nil, err
		}

		for i := range result.IDs {
			fields := make(map[string]any)
			if i < len(result.Metadatas) {
				for k, v := range result.Metadatas[i] {
					fields[k] = v
				}
			}
			if i < len(result.Documents) && result.Documents[i] != "" {
				fields["document"] = result.Documents[i]
			}
			records = append(records, model.RawRecord{Source: s.Name(), Fields: fields})
		}

		if len(result.IDs) < chromaPageSize {
			break
		}
	}

	zap.L().Info("chroma: collection dumped",
		zap.String("collection", s.collection),
		zap.Int("records", len(records)),
	)
	return records, nil
}
