package collections

import (
	"context"
	"log/slog"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (dbService *CollectionsDBService) CreateIndexForSubmissionsCollection(instanceID string) error {
	ctx, cancel := dbService.getContext(context.Background())
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "collectionId", Value: 1},
				{Key: "mode", Value: 1},
				{Key: "createdAt", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "collectionId", Value: 1},
				{Key: "createdBy", Value: 1},
			},
		},
	}
	_, err := dbService.collectionSubmissions(instanceID).Indexes().CreateMany(ctx, indexes)
	return err
}

func (dbService *CollectionsDBService) CreateSubmission(ctx context.Context, instanceID string, submission *types.Submission) (string, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	if submission.ID.IsZero() {
		submission.ID = primitive.NewObjectID()
	}
	if submission.Data == nil {
		submission.Data = map[string]interface{}{}
	}
	res, err := dbService.collectionSubmissions(instanceID).InsertOne(ctx, submission)
	if err != nil {
		return "", err
	}
	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (dbService *CollectionsDBService) GetSubmissionByID(ctx context.Context, instanceID string, submissionID string) (*types.Submission, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(submissionID)
	if err != nil {
		return nil, err
	}

	var submission types.Submission
	if err := dbService.collectionSubmissions(instanceID).FindOne(ctx, bson.M{"_id": _id}).Decode(&submission); err != nil {
		return nil, err
	}
	return &submission, nil
}

func submissionsFilter(collectionID primitive.ObjectID, mode types.SubmissionMode) bson.M {
	filter := bson.M{"collectionId": collectionID}
	if mode != "" {
		filter["mode"] = mode
	}
	return filter
}

// GetSubmissionsForCollection lists submissions of a collection, oldest first. An empty mode
// returns both test and live submissions.
func (dbService *CollectionsDBService) GetSubmissionsForCollection(ctx context.Context, instanceID string, collectionID primitive.ObjectID, mode types.SubmissionMode) ([]*types.Submission, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := dbService.collectionSubmissions(instanceID).Find(ctx, submissionsFilter(collectionID, mode), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	submissions := []*types.Submission{}
	if err := cursor.All(ctx, &submissions); err != nil {
		return nil, err
	}
	return submissions, nil
}

func (dbService *CollectionsDBService) CountSubmissionsForCollection(ctx context.Context, instanceID string, collectionID primitive.ObjectID, mode types.SubmissionMode) (int64, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return dbService.collectionSubmissions(instanceID).CountDocuments(ctx, submissionsFilter(collectionID, mode))
}

// ReplaceSubmission stores answers and events of a submission.
func (dbService *CollectionsDBService) ReplaceSubmission(ctx context.Context, instanceID string, submission *types.Submission) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	res, err := dbService.collectionSubmissions(instanceID).ReplaceOne(ctx, bson.M{"_id": submission.ID}, submission)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (dbService *CollectionsDBService) DeleteTestSubmissionsByUser(ctx context.Context, instanceID string, collectionID primitive.ObjectID, createdBy string) (int64, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	filter := bson.M{
		"collectionId": collectionID,
		"mode":         types.SUBMISSION_MODE_TEST,
		"createdBy":    createdBy,
	}
	res, err := dbService.collectionSubmissions(instanceID).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// FindAndExecuteOnSubmissions streams the submissions of a collection through fn. Documents that
// cannot be decoded are logged and skipped.
func (dbService *CollectionsDBService) FindAndExecuteOnSubmissions(
	ctx context.Context,
	instanceID string,
	collectionID primitive.ObjectID,
	mode types.SubmissionMode,
	returnOnError bool,
	fn func(dbService *CollectionsDBService, s *types.Submission, instanceID string, args ...interface{}) error,
	args ...interface{},
) error {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if dbService.noCursorTimeout {
		opts.SetNoCursorTimeout(true)
	}

	cursor, err := dbService.collectionSubmissions(instanceID).Find(ctx, submissionsFilter(collectionID, mode), opts)
	if err != nil {
		return err
	}

	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var submission types.Submission
		if err = cursor.Decode(&submission); err != nil {
			slog.Error("Error while decoding submission", slog.String("error", err.Error()))
			continue
		}

		if err = fn(dbService, &submission, instanceID, args...); err != nil {
			slog.Error("Error while executing function on submission", slog.String("submissionID", submission.ID.Hex()), slog.String("error", err.Error()))
			if returnOnError {
				return err
			}
			continue
		}
	}
	return cursor.Err()
}
