package collections

import (
	"context"
	"log/slog"
	"time"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/db"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collection names
const (
	COLLECTION_NAME_COLLECTIONS = "collections"
	COLLECTION_NAME_SUBMISSIONS = "submissions"
)

type CollectionsDBService struct {
	DBClient        *mongo.Client
	timeout         int
	noCursorTimeout bool
	DBNamePrefix    string
	InstanceIDs     []string
}

func NewCollectionsDBService(configs db.DBConfig) (*CollectionsDBService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	defer cancel()

	dbClient, err := mongo.Connect(ctx,
		options.Client().ApplyURI(configs.URI),
		options.Client().SetMaxConnIdleTime(time.Duration(configs.IdleConnTimeout)*time.Second),
		options.Client().SetMaxPoolSize(configs.MaxPoolSize),
	)

	if err != nil {
		return nil, err
	}

	ctx, conCancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	err = dbClient.Ping(ctx, nil)
	defer conCancel()

	if err != nil {
		return nil, err
	}

	collectionsDBSc := &CollectionsDBService{
		DBClient:        dbClient,
		timeout:         configs.Timeout,
		noCursorTimeout: configs.NoCursorTimeout,
		DBNamePrefix:    configs.DBNamePrefix,
		InstanceIDs:     configs.InstanceIDs,
	}

	if configs.RunIndexCreation {
		if err := collectionsDBSc.ensureIndexes(); err != nil {
			slog.Error("Error ensuring indexes for collections DB", slog.String("error", err.Error()))
		}
	}

	return collectionsDBSc, nil
}

func (dbService *CollectionsDBService) getDBName(instanceID string) string {
	return dbService.DBNamePrefix + instanceID + "_collectionsDB"
}

func (dbService *CollectionsDBService) collectionCollections(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_COLLECTIONS)
}

func (dbService *CollectionsDBService) collectionSubmissions(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_SUBMISSIONS)
}

// getContext bounds a DB call by the configured timeout. The parent may carry a session
// started by WithTransaction.
func (dbService *CollectionsDBService) getContext(parent context.Context) (ctx context.Context, cancel context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, time.Duration(dbService.timeout)*time.Second)
}

func (dbService *CollectionsDBService) ensureIndexes() error {
	slog.Debug("Ensuring indexes for collections DB")
	for _, instanceID := range dbService.InstanceIDs {
		dbService.logExistingIndexes(instanceID)
		if err := dbService.CreateIndexForCollectionsCollection(instanceID); err != nil {
			slog.Error("Error creating index for collections", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
		}
		if err := dbService.CreateIndexForSubmissionsCollection(instanceID); err != nil {
			slog.Error("Error creating index for submissions", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
		}
	}
	return nil
}

func (dbService *CollectionsDBService) logExistingIndexes(instanceID string) {
	ctx, cancel := dbService.getContext(context.Background())
	defer cancel()

	for _, coll := range []*mongo.Collection{dbService.collectionCollections(instanceID), dbService.collectionSubmissions(instanceID)} {
		indexes, err := db.ListCollectionIndexes(ctx, coll)
		if err != nil {
			slog.Warn("Error listing indexes", slog.String("instanceID", instanceID), slog.String("collection", coll.Name()), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Existing indexes", slog.String("instanceID", instanceID), slog.String("collection", coll.Name()), slog.Int("count", len(indexes)))
	}
}

// WithTransaction runs fn in a multi-document transaction. Every DB call made with the session
// context joins the transaction; it is committed when fn returns nil and aborted otherwise.
func (dbService *CollectionsDBService) WithTransaction(ctx context.Context, fn func(sc context.Context) error) error {
	session, err := dbService.DBClient.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
