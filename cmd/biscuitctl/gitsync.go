package main

import (
	"github.com/biscuit-auth/biscuit/revocation"
	"github.com/biscuit-auth/biscuit/revocation/gitsync"
)

func newGitSyncer(store *revocation.MemoryStore) (*gitsync.Syncer, error) {
	return gitsync.New(gitsync.Config{
		Repository: revocationFlags.repo,
		Branch:     revocationFlags.branch,
		FilePath:   revocationFlags.file,
	}, store, nil, rootLogger())
}
