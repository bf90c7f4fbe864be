package collections

import (
	"context"
	"errors"
	"fmt"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/runner"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/schema"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CollectionsDB is the storage the service needs. It is implemented by
// pkg/db/collections.CollectionsDBService.
type CollectionsDB interface {
	WithTransaction(ctx context.Context, fn func(sc context.Context) error) error

	CreateCollection(ctx context.Context, instanceID string, collection *types.Collection) (string, error)
	GetCollectionByID(ctx context.Context, instanceID string, collectionID string) (*types.Collection, error)
	ReplaceCollection(ctx context.Context, instanceID string, collection *types.Collection) error

	CreateSubmission(ctx context.Context, instanceID string, submission *types.Submission) (string, error)
	GetSubmissionByID(ctx context.Context, instanceID string, submissionID string) (*types.Submission, error)
	GetSubmissionsForCollection(ctx context.Context, instanceID string, collectionID primitive.ObjectID, mode types.SubmissionMode) ([]*types.Submission, error)
	ReplaceSubmission(ctx context.Context, instanceID string, submission *types.Submission) error
	DeleteTestSubmissionsByUser(ctx context.Context, instanceID string, collectionID primitive.ObjectID, createdBy string) (int64, error)
}

var (
	collectionsDBService CollectionsDB
	editorConfig         = schema.DefaultEditorConfig()
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

func Init(
	collectionsDB CollectionsDB,
	conf schema.EditorConfig,
) {
	collectionsDBService = collectionsDB
	if conf.MaxNestedGroupLevels > 0 {
		editorConfig = conf
	}
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// storageError turns missing documents into ErrNotFound.
func storageError(what string, id string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return err
}

func parseID(id string) (primitive.ObjectID, error) {
	_id, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return _id, nil
}

func loadCollection(ctx context.Context, instanceID string, collectionID string) (*types.Collection, error) {
	if _, err := parseID(collectionID); err != nil {
		return nil, err
	}
	collection, err := collectionsDBService.GetCollectionByID(ctx, instanceID, collectionID)
	if err != nil {
		return nil, storageError("collection", collectionID, err)
	}
	collection.Link()
	return collection, nil
}

// loadSubmissionHelper loads a collection and one of its submissions.
func loadSubmissionHelper(ctx context.Context, instanceID string, collectionID string, submissionID string) (*runner.SubmissionHelper, error) {
	collection, err := loadCollection(ctx, instanceID, collectionID)
	if err != nil {
		return nil, err
	}
	if _, err := parseID(submissionID); err != nil {
		return nil, err
	}
	submission, err := collectionsDBService.GetSubmissionByID(ctx, instanceID, submissionID)
	if err != nil {
		return nil, storageError("submission", submissionID, err)
	}
	if submission.CollectionID != collection.ID {
		return nil, fmt.Errorf("submission %s: %w", submissionID, ErrNotFound)
	}
	return runner.NewSubmissionHelper(collection, submission), nil
}

// updateSubmission runs fn against the submission inside one transaction and stores the result
// when fn succeeds.
func updateSubmission(
	ctx context.Context,
	instanceID string,
	collectionID string,
	submissionID string,
	fn func(h *runner.SubmissionHelper) error,
) (*runner.SubmissionHelper, error) {
	var helper *runner.SubmissionHelper
	err := collectionsDBService.WithTransaction(ctx, func(sc context.Context) error {
		h, err := loadSubmissionHelper(sc, instanceID, collectionID, submissionID)
		if err != nil {
			return err
		}
		if err := fn(h); err != nil {
			return err
		}
		helper = h
		return collectionsDBService.ReplaceSubmission(sc, instanceID, h.Submission())
	})
	if err != nil {
		return nil, err
	}
	return helper, nil
}

// updateCollection runs a schema edit inside one transaction. The tree is validated before it is
// stored.
func updateCollection(
	ctx context.Context,
	instanceID string,
	collectionID string,
	fn func(e *schema.Editor) error,
) (*types.Collection, error) {
	var collection *types.Collection
	err := collectionsDBService.WithTransaction(ctx, func(sc context.Context) error {
		c, err := loadCollection(sc, instanceID, collectionID)
		if err != nil {
			return err
		}
		editor := schema.NewEditor(c, editorConfig)
		if err := fn(editor); err != nil {
			return err
		}
		if err := editor.ValidateTree(); err != nil {
			return err
		}
		collection = editor.Collection()
		return collectionsDBService.ReplaceCollection(sc, instanceID, collection)
	})
	if err != nil {
		return nil, err
	}
	return collection, nil
}
