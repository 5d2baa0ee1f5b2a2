// Package backend contains interfaces and implementations to store and
// retrieve data from the odb
package backend

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/ginternals/config"
	"github.com/Nivl/git-go/ginternals/githash"
	"github.com/Nivl/git-go/ginternals/object"
	"github.com/Nivl/git-go/internal/cache"
	"github.com/Nivl/git-go/internal/syncutil"
	"github.com/spf13/afero"
)

// ODB represents an object that can store and retrieve data from and
// to the odb. Backend is the only implementation; the interface only
// exists to document the contract repo.go relies on.
type ODB interface {
	// Close free the resources
	Close() error

	// Init initializes a repository
	Init(branchName string) error

	// Reference returns a stored reference from its name
	Reference(name string) (*ginternals.Reference, error)
	// WriteReference writes the given reference int the db. If the
	// reference already exists it will be overwritten
	WriteReference(ref *ginternals.Reference) error
	// WriteReferenceSafe writes the given reference in the db
	// ErrRefExists is returned if the reference already exists
	WriteReferenceSafe(ref *ginternals.Reference) error
	// WalkReferences runs the provided method on all the references
	WalkReferences(f RefWalkFunc) error

	// Object returns the object that has given oid
	Object(ginternals.Oid) (*object.Object, error)
	// HasObject returns whether an object exists in the odb
	HasObject(ginternals.Oid) (bool, error)
	// WriteObject adds an object to the odb
	WriteObject(*object.Object) (ginternals.Oid, error)
	// WalkLooseObjectIDs runs the provided method on all the loose ids
	WalkLooseObjectIDs(f OidWalkFunc) error
}

// RefWalkFunc represents a function that will be applied on all references
// found by Walk()
type RefWalkFunc = func(ref *ginternals.Reference) error

// WalkStop is a fake error used to tell Walk() to stop
var WalkStop = errors.New("stop walking") //nolint // the linter expects all errors to start with Err, but since here we're faking an error we don't want that

// OidWalkFunc represents a function that will be applied on all oids
// found by a Walk method
type OidWalkFunc = func(oid githash.Oid) error

// OidWalkStop is a fake error used to tell a Walk method to stop
var OidWalkStop = errors.New("stop walking") //nolint // same as WalkStop, not a real error

// objectCacheSize is the default number of decoded objects kept in
// memory to avoid re-reading and re-inflating the same loose object
// from disk on repeat Object() calls.
const objectCacheSize = 100

// namedMutexSize is the number of stripes used to shard the lock
// guarding concurrent Object()/WriteObject()/HasObject() calls. Using
// more than one stripe lets unrelated oids be worked on concurrently.
const namedMutexSize = 64

// Backend is a Backend implementation that uses the filesystem to
// store the data, as afero.Fs.
type Backend struct {
	config *config.Config
	fs     afero.Fs
	hash   githash.Hash

	cache    *cache.LRU
	objectMu *syncutil.NamedMutex

	looseObjects sync.Map
	refs         sync.Map
}

// we make sure the struct implements the interface
var _ ODB = (*Backend)(nil)

// NewFS returns a new filesystem-backed Backend using the given config.
func NewFS(cfg *config.Config) (b *Backend, err error) {
	fs := cfg.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}

	lru, err := cache.NewLRU(objectCacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create object cache: %w", err)
	}

	b = &Backend{
		config:   cfg,
		fs:       fs,
		hash:     githash.NewSHA1(),
		cache:    lru,
		objectMu: syncutil.NewNamedMutex(namedMutexSize),
	}

	if err = b.loadConfig(); err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	if err = b.loadRefs(); err != nil {
		return nil, fmt.Errorf("could not load refs: %w", err)
	}
	if err = b.loadLooseObject(); err != nil {
		return nil, fmt.Errorf("could not load loose objects: %w", err)
	}

	return b, nil
}

// Close frees the resources held by the backend.
func (b *Backend) Close() error {
	if b.cache != nil {
		b.cache.Clear()
	}
	return nil
}

// Path returns the path to the .git directory
func (b *Backend) Path() string {
	return b.config.GitDirPath
}

// ObjectsPath returns the path to the directory containing the objects
func (b *Backend) ObjectsPath() string {
	return b.config.ObjectDirPath
}
