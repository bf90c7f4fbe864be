package collectionstest

import (
	"context"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MemoryDB is an in-memory collections store for tests. Documents are kept as bson so that reads
// return the same shapes the mongo driver produces. Not safe for concurrent use.
type MemoryDB struct {
	collections map[primitive.ObjectID][]byte
	submissions map[primitive.ObjectID][]byte
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		collections: map[primitive.ObjectID][]byte{},
		submissions: map[primitive.ObjectID][]byte{},
	}
}

func copyDocs(src map[primitive.ObjectID][]byte) map[primitive.ObjectID][]byte {
	dst := make(map[primitive.ObjectID][]byte, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// WithTransaction restores all documents when fn fails.
func (db *MemoryDB) WithTransaction(ctx context.Context, fn func(sc context.Context) error) error {
	collections, submissions := copyDocs(db.collections), copyDocs(db.submissions)
	if err := fn(ctx); err != nil {
		db.collections, db.submissions = collections, submissions
		return err
	}
	return nil
}

func (db *MemoryDB) CreateCollection(ctx context.Context, instanceID string, collection *types.Collection) (string, error) {
	raw, err := bson.Marshal(collection)
	if err != nil {
		return "", err
	}
	db.collections[collection.ID] = raw
	return collection.ID.Hex(), nil
}

func (db *MemoryDB) GetCollectionByID(ctx context.Context, instanceID string, collectionID string) (*types.Collection, error) {
	id, err := primitive.ObjectIDFromHex(collectionID)
	if err != nil {
		return nil, err
	}
	raw, ok := db.collections[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	var collection types.Collection
	if err := bson.Unmarshal(raw, &collection); err != nil {
		return nil, err
	}
	return &collection, nil
}

func (db *MemoryDB) ReplaceCollection(ctx context.Context, instanceID string, collection *types.Collection) error {
	if _, ok := db.collections[collection.ID]; !ok {
		return mongo.ErrNoDocuments
	}
	_, err := db.CreateCollection(ctx, instanceID, collection)
	return err
}

func (db *MemoryDB) CreateSubmission(ctx context.Context, instanceID string, submission *types.Submission) (string, error) {
	raw, err := bson.Marshal(submission)
	if err != nil {
		return "", err
	}
	db.submissions[submission.ID] = raw
	return submission.ID.Hex(), nil
}

func (db *MemoryDB) GetSubmissionByID(ctx context.Context, instanceID string, submissionID string) (*types.Submission, error) {
	id, err := primitive.ObjectIDFromHex(submissionID)
	if err != nil {
		return nil, err
	}
	raw, ok := db.submissions[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	var submission types.Submission
	if err := bson.Unmarshal(raw, &submission); err != nil {
		return nil, err
	}
	return &submission, nil
}

func (db *MemoryDB) GetSubmissionsForCollection(ctx context.Context, instanceID string, collectionID primitive.ObjectID, mode types.SubmissionMode) ([]*types.Submission, error) {
	res := []*types.Submission{}
	for id := range db.submissions {
		s, err := db.GetSubmissionByID(ctx, instanceID, id.Hex())
		if err != nil {
			return nil, err
		}
		if s.CollectionID == collectionID && (mode == "" || s.Mode == mode) {
			res = append(res, s)
		}
	}
	return res, nil
}

func (db *MemoryDB) ReplaceSubmission(ctx context.Context, instanceID string, submission *types.Submission) error {
	if _, ok := db.submissions[submission.ID]; !ok {
		return mongo.ErrNoDocuments
	}
	_, err := db.CreateSubmission(ctx, instanceID, submission)
	return err
}

func (db *MemoryDB) DeleteTestSubmissionsByUser(ctx context.Context, instanceID string, collectionID primitive.ObjectID, createdBy string) (int64, error) {
	subs, err := db.GetSubmissionsForCollection(ctx, instanceID, collectionID, types.SUBMISSION_MODE_TEST)
	if err != nil {
		return 0, err
	}
	count := int64(0)
	for _, s := range subs {
		if s.CreatedBy == createdBy {
			delete(db.submissions, s.ID)
			count++
		}
	}
	return count, nil
}
