package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/dynasty-draftsync/go/internal/draft/client"
)

func TestConsolePrintsCompletionOnce(t *testing.T) {
	out, err := os.Create(filepath.Join(t.TempDir(), "console.log"))
	require.NoError(t, err)
	defer out.Close()

	c := &console{out: out}
	done := client.State{Joined: true, ActiveSlot: -1}
	done.Session.Complete = true
	for i := 0; i < 3; i++ {
		c.OnState(done)
	}

	data, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "draft complete"))
}
