package collections

import (
	"context"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (dbService *CollectionsDBService) CreateIndexForCollectionsCollection(instanceID string) error {
	ctx, cancel := dbService.getContext(context.Background())
	defer cancel()

	_, err := dbService.collectionCollections(instanceID).Indexes().CreateOne(
		ctx,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"slug": bson.M{"$type": "string"}}),
		},
	)
	return err
}

func (dbService *CollectionsDBService) CreateCollection(ctx context.Context, instanceID string, collection *types.Collection) (string, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	if collection.ID.IsZero() {
		collection.ID = primitive.NewObjectID()
	}
	res, err := dbService.collectionCollections(instanceID).InsertOne(ctx, collection)
	if err != nil {
		return "", err
	}
	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

// GetCollectionByID loads a collection and rebuilds the runtime links of its tree.
func (dbService *CollectionsDBService) GetCollectionByID(ctx context.Context, instanceID string, collectionID string) (*types.Collection, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(collectionID)
	if err != nil {
		return nil, err
	}

	var collection types.Collection
	if err := dbService.collectionCollections(instanceID).FindOne(ctx, bson.M{"_id": _id}).Decode(&collection); err != nil {
		return nil, err
	}
	collection.Link()
	return &collection, nil
}

func (dbService *CollectionsDBService) GetCollections(ctx context.Context, instanceID string) ([]*types.Collection, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := dbService.collectionCollections(instanceID).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	collections := []*types.Collection{}
	if err := cursor.All(ctx, &collections); err != nil {
		return nil, err
	}
	for _, c := range collections {
		c.Link()
	}
	return collections, nil
}

// ReplaceCollection stores the whole schema document. The tree is small and always edited as a unit.
func (dbService *CollectionsDBService) ReplaceCollection(ctx context.Context, instanceID string, collection *types.Collection) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	res, err := dbService.collectionCollections(instanceID).ReplaceOne(ctx, bson.M{"_id": collection.ID}, collection)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (dbService *CollectionsDBService) DeleteCollection(ctx context.Context, instanceID string, collectionID string) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(collectionID)
	if err != nil {
		return err
	}

	res, err := dbService.collectionCollections(instanceID).DeleteOne(ctx, bson.M{"_id": _id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
