//go:build integration

package gridfs

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var testDB *mongo.Database

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "6.0",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start MongoDB resource: %s", err)
	}
	uri := fmt.Sprintf("mongodb://%s", resource.GetHostPort("27017/tcp"))

	var client *mongo.Client
	if err := pool.Retry(func() error {
		var errRetry error
		client, errRetry = mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
		if errRetry != nil {
			return errRetry
		}
		return client.Ping(context.Background(), nil)
	}); err != nil {
		log.Fatalf("Could not connect to MongoDB: %s", err)
	}
	testDB = client.Database("gallery_test")

	code := m.Run()

	_ = client.Disconnect(context.Background())
	if err := pool.Purge(resource); err != nil {
		log.Fatalf("Could not purge MongoDB resource: %s", err)
	}
	os.Exit(code)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	bucket := "uploads_" + strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_"))
	s, err := NewStore(testDB, bucket, 1024, logger.NewNop())
	require.NoError(t, err)
	return s
}

func storedObject(group, brand string) domain.StoredObject {
	id := primitive.NewObjectID().Hex()
	return domain.StoredObject{
		ID:          id,
		Filename:    id + "-photo.jpg",
		ContentType: "image/jpeg",
		Metadata: domain.Metadata{
			GroupID: group,
			Attributes: domain.Attributes{
				Brand: brand, Model: "M", Year: "2020", Color: "red", BodyType: "suv",
				Specs: "s", Mileage: "1", Seats: "5", FuelType: "petrol",
				Transmission: "auto", Steering: "left", Trim: "base", Price: "100",
			},
		},
	}
}

func TestStore_PutFindReadDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := storedObject("g1", "Toyota")
	second := storedObject("g1", "Toyota")
	other := storedObject("g2", "Honda")
	payload := strings.Repeat("x", 4096)
	require.NoError(t, s.Put(ctx, first, strings.NewReader(payload)))
	require.NoError(t, s.Put(ctx, second, strings.NewReader("second")))
	require.NoError(t, s.Put(ctx, other, strings.NewReader("other")))

	group, err := s.Find(ctx, domain.ObjectFilter{GroupID: "g1"})
	require.NoError(t, err)
	require.Len(t, group, 2)
	assert.Equal(t, first.ID, group[0].ID)
	assert.True(t, group[0].Metadata.Complete())
	assert.EqualValues(t, len(payload), group[0].Length)

	brand, err := s.Find(ctx, domain.ObjectFilter{Attribute: &domain.AttributeFilter{Field: domain.AttrBrand, Value: "HON", Mode: domain.MatchSubstring}})
	require.NoError(t, err)
	require.Len(t, brand, 1)
	assert.Equal(t, other.ID, brand[0].ID)

	asset, err := s.OpenReadStream(ctx, first.Filename)
	require.NoError(t, err)
	body, err := io.ReadAll(asset.Body)
	require.NoError(t, err)
	require.NoError(t, asset.Body.Close())
	assert.Equal(t, payload, string(body))
	assert.Equal(t, "image/jpeg", asset.ContentType)

	require.NoError(t, s.Delete(ctx, first.ID))
	_, err = s.OpenReadStream(ctx, first.Filename)
	assert.ErrorIs(t, err, domain.ErrAssetNotFound)
	assert.ErrorIs(t, s.Delete(ctx, first.ID), domain.ErrAssetNotFound)
}

func TestStore_FindToleratesLegacyDocuments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	files := testDB.Collection("uploads_" + strings.ToLower(t.Name()) + ".files")
	_, err := files.InsertMany(ctx, []interface{}{
		bson.M{"_id": primitive.NewObjectID(), "filename": "a.jpg", "length": 0, "chunkSize": 1024, "metadata": nil},
		bson.M{"_id": primitive.NewObjectID(), "filename": "b.jpg", "length": 0, "chunkSize": 1024, "metadata": bson.M{"groupId": "g9", "brand": bson.A{"Kia"}, "feul": "diesel"}},
	})
	require.NoError(t, err)

	objs, err := s.Find(ctx, domain.ObjectFilter{})
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.False(t, objs[0].Metadata.Complete())
	assert.Equal(t, "Kia", objs[1].Metadata.Attributes.Brand)
	assert.Equal(t, "diesel", objs[1].Metadata.Attributes.FuelType)

	fuel, err := s.Find(ctx, domain.ObjectFilter{Attribute: &domain.AttributeFilter{Field: domain.AttrFuelType, Value: "diesel", Mode: domain.MatchExact}})
	require.NoError(t, err)
	assert.Len(t, fuel, 1)
}
