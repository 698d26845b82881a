package redisstore

import (
	"fmt"
	"os"
	"testing"

	"github.com/battlesnakeio/chainsnake/journal/testsuite"
	"github.com/dlsteuer/miniredis"
	"github.com/stretchr/testify/require"
)

var redisURL string
var server *miniredis.Miniredis

func TestRedisStore(t *testing.T) {
	s, err := NewStore(redisURL)
	require.NoError(t, err)
	defer s.Close()

	testsuite.Suite(t, s, func() {
		if server != nil {
			server.FlushAll()
		}
	})
}

func TestNewStoreBadURL(t *testing.T) {
	_, err := NewStore("not a url")
	require.Error(t, err)
}

func TestMain(m *testing.M) {
	redisURL = os.Getenv("REDIS_URL")
	if len(redisURL) == 0 {
		server = miniredis.NewMiniRedis()
		if err := server.StartAddr("127.0.0.1:9737"); err != nil {
			fmt.Println("unable to start local redis instance")
			os.Exit(1)
		}
		redisURL = fmt.Sprintf("redis://%s", server.Addr())
	}

	code := m.Run()
	if server != nil {
		server.Close()
	}
	os.Exit(code)
}
