package database

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

// toDoc round-trips v through BSON so it can be served by the mock deployment.
func toDoc(t testing.TB, v any) bson.D {
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

// command returns the body of the next command the client sent.
func command(mt *mtest.T) bson.Raw {
	evt := mt.GetStartedEvent()
	require.NotNil(mt, evt)
	return evt.Command
}
