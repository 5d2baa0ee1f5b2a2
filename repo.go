// Package git is the entry point of the library. It exposes a
// Repository type used to create, open, and interact with a git
// repository backed by the odb.
package git

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/Nivl/git-go/backend"
	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/ginternals/config"
	"github.com/Nivl/git-go/ginternals/object"
	"github.com/spf13/afero"
)

// List of errors returned by the Repository struct
var (
	ErrRepositoryNotExist           = errors.New("repository does not exist")
	ErrRepositoryUnsupportedVersion = errors.New("repository not supported")
	ErrTagNotFound                  = errors.New("tag not found")
	ErrTagExists                    = errors.New("tag already exists")
	ErrNotACommit                   = errors.New("object is not a commit")
	ErrMalformedTree                = errors.New("tree contains an entry that cannot be checked out")
	ErrBareRepository               = errors.New("repository has no work tree")

	// ErrRepositoryNotEmpty is returned by InitRepositoryWithParams when
	// the target work tree isn't empty (holds anything other than an
	// existing .git), and by CheckoutTree under the same condition.
	ErrRepositoryNotEmpty = errors.New("work tree is not empty")

	// ErrRepositoryExists is returned by InitRepositoryWithParams when a
	// repository is already initialized at the target path. A populated
	// .git is, by definition, a non-empty work tree, so this carries the
	// same error identity as ErrRepositoryNotEmpty: callers that only
	// check for one of the two still get the right behavior.
	ErrRepositoryExists = ErrRepositoryNotEmpty
)

// CommitWalkStop is a fake error used to tell Log() to stop walking
// the commit ancestry early.
var CommitWalkStop = errors.New("stop walking") //nolint // same as backend.WalkStop, not a real error

// CommitWalkFunc represents a function applied on every commit walked
// by Log(). Returning CommitWalkStop stops the walk without returning
// an error to the caller.
type CommitWalkFunc func(c *object.Commit) error

// Repository represent a git repository
// A Git repository is the .git/ folder inside a project.
// This repository tracks all changes made to files in your project,
// building a history over time.
// https://blog.axosoft.com/learning-git-repository/
type Repository struct {
	// Config contains the configuration used to locate and open this
	// repository
	Config *config.Config

	dotGit   *backend.Backend
	workTree afero.Fs
}

// InitOptions contains all the optional data used to initialized a
// repository
type InitOptions struct {
	// IsBare represents whether a bare repository will be created or not
	IsBare bool
	// HashAlgorithm specifies the hash algorithm the odb should use.
	// Defaults to sha1.
	HashAlgorithm string
	// InitialBranchName overrides the name of the branch HEAD will
	// point to. Defaults to the init.defaultBranch config value, or
	// to master if unset.
	InitialBranchName string
	// Symlink creates a .git file containing a pointer to the actual
	// git directory, instead of putting the git directory directly at
	// .git. Used to support --separate-git-dir.
	Symlink bool
}

// InitRepository initialize a new git repository by creating the .git
// directory in the given path, which is where almost everything that
// Git stores and manipulates is located.
// https://git-scm.com/book/en/v2/Git-Internals-Plumbing-and-Porcelain#ch10-git-internals
func InitRepository(repoPath string) (*Repository, error) {
	return InitRepositoryWithOptions(repoPath, InitOptions{})
}

// InitRepositoryWithOptions initialize a new git repository by creating
// the .git directory in the given path, which is where almost
// everything that Git stores and manipulates is located.
// https://git-scm.com/book/en/v2/Git-Internals-Plumbing-and-Porcelain#ch10-git-internals
func InitRepositoryWithOptions(repoPath string, opts InitOptions) (*Repository, error) {
	cfg, err := repoConfig(repoPath, opts.IsBare)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	return InitRepositoryWithParams(cfg, opts)
}

// InitRepositoryWithParams initializes a new git repository using an
// already built Config, giving full control over the location of the
// .git directory, the work tree, and the underlying filesystem.
func InitRepositoryWithParams(cfg *config.Config, opts InitOptions) (*Repository, error) {
	headPath := filepath.Join(ginternals.DotGitPath(cfg), ginternals.Head)
	alreadyExists, err := afero.Exists(cfg.FS, headPath)
	if err != nil {
		return nil, fmt.Errorf("could not check if repository exists: %w", err)
	}
	if alreadyExists {
		return nil, ErrRepositoryExists
	}

	// A work tree must be empty (except for a possible .git) before we
	// create anything in it.
	if !opts.IsBare {
		empty, err := isWorkTreeEmpty(cfg)
		if err != nil {
			return nil, fmt.Errorf("could not check if work tree is empty: %w", err)
		}
		if !empty {
			return nil, ErrRepositoryNotEmpty
		}
	}

	b, err := backend.NewFS(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create backend: %w", err)
	}

	branchName := ginternals.Master
	if name, ok := cfg.FromFile().DefaultBranch(); ok {
		branchName = name
	}
	if opts.InitialBranchName != "" {
		branchName = opts.InitialBranchName
	}
	if err := b.InitWithOptions(branchName, backend.InitOptions{
		HashAlgorithm: opts.HashAlgorithm,
		CreateSymlink: opts.Symlink,
	}); err != nil {
		return nil, fmt.Errorf("could not initialize repository: %w", err)
	}

	r := &Repository{
		Config: cfg,
		dotGit: b,
	}
	if !opts.IsBare {
		r.workTree = cfg.FS
	}
	return r, nil
}

// isWorkTreeEmpty reports whether cfg's work tree holds nothing but an
// existing .git entry. A work tree directory that doesn't exist yet is
// considered empty, since init() is expected to create it.
func isWorkTreeEmpty(cfg *config.Config) (bool, error) {
	entries, err := afero.ReadDir(cfg.FS, cfg.WorkTreePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf("could not read work tree: %w", err)
	}
	for _, e := range entries {
		if e.Name() != config.DefaultDotGitDirName {
			return false, nil
		}
	}
	return true, nil
}

// OpenOptions contains all the optional data used to open a
// repository
type OpenOptions struct {
	// IsBare represents whether the repository is bare or not
	IsBare bool
}

// OpenRepository loads an existing git repository by reading its
// config file, and returns a Repository instance
func OpenRepository(repoPath string) (*Repository, error) {
	return OpenRepositoryWithOptions(repoPath, OpenOptions{})
}

// OpenRepositoryWithOptions loads an existing git repository by reading
// its config file, and returns a Repository instance
func OpenRepositoryWithOptions(repoPath string, opts OpenOptions) (*Repository, error) {
	cfg, err := repoConfig(repoPath, opts.IsBare)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	return OpenRepositoryWithParams(cfg, opts)
}

// OpenRepositoryWithParams loads an existing git repository using an
// already built Config, and returns a Repository instance
func OpenRepositoryWithParams(cfg *config.Config, opts OpenOptions) (*Repository, error) {
	b, err := backend.NewFS(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create backend: %w", err)
	}

	// since we can't check if the directory exists on disk to
	// validate if the repo exists, we're instead going to see if HEAD
	// exists (since it should always be there)
	if _, err := b.Reference(ginternals.Head); err != nil {
		return nil, ErrRepositoryNotExist
	}

	r := &Repository{
		Config: cfg,
		dotGit: b,
	}
	if !opts.IsBare {
		r.workTree = cfg.FS
	}
	return r, nil
}

// repoConfig builds the Config used to locate the .git directory and
// work tree of a repository from the path given to one of the
// path-based Init/Open helpers.
func repoConfig(repoPath string, isBare bool) (*config.Config, error) {
	gitDirPath := repoPath
	if !isBare {
		gitDirPath = filepath.Join(repoPath, config.DefaultDotGitDirName)
	}

	lco := config.LoadConfigOptions{
		GitDirPath:       gitDirPath,
		IsBare:           isBare,
		SkipGitDirLookUp: true,
	}
	if !isBare {
		lco.WorkingDirectory = repoPath
		lco.WorkTreePath = repoPath
	}
	return config.LoadConfigSkipEnv(lco)
}

// Close frees the resources held by the repository
func (r *Repository) Close() error {
	return r.dotGit.Close()
}

// IsBare returns whether the repository has a working tree or not
func (r *Repository) IsBare() bool {
	return r.workTree == nil
}

// GetObject returns the object matching the given Oid
func (r *Repository) GetObject(oid ginternals.Oid) (*object.Object, error) {
	o, err := r.dotGit.Object(oid)
	if err != nil {
		return nil, fmt.Errorf("could not get object %s: %w", oid.String(), err)
	}
	return o, nil
}

// GetCommit returns the commit matching the given Oid
func (r *Repository) GetCommit(oid ginternals.Oid) (*object.Commit, error) {
	o, err := r.GetObject(oid)
	if err != nil {
		return nil, err
	}
	return o.AsCommit()
}

// GetTree returns the tree matching the given Oid
func (r *Repository) GetTree(oid ginternals.Oid) (*object.Tree, error) {
	o, err := r.GetObject(oid)
	if err != nil {
		return nil, err
	}
	return o.AsTree()
}

// GetReference returns the reference matching the given name
func (r *Repository) GetReference(name string) (*ginternals.Reference, error) {
	return r.dotGit.Reference(name)
}

// GetTag returns the reference of the tag with the given short name
// (ex. "v1.0.0", not "refs/tags/v1.0.0")
func (r *Repository) GetTag(name string) (*ginternals.Reference, error) {
	ref, err := r.dotGit.Reference(ginternals.LocalTagFullName(name))
	if err != nil {
		if errors.Is(err, ginternals.ErrRefNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("could not get tag %s: %w", name, err)
	}
	return ref, nil
}

// NewBlob creates, persists, and returns a new Blob object
func (r *Repository) NewBlob(data []byte) (*object.Blob, error) {
	o := object.New(object.TypeBlob, data)
	if _, err := r.dotGit.WriteObject(o); err != nil {
		return nil, fmt.Errorf("could not persist blob: %w", err)
	}
	return o.AsBlob(), nil
}

// validateParents makes sure every oid in parentIDs points to an
// existing commit
func (r *Repository) validateParents(parentIDs []ginternals.Oid) error {
	for _, pid := range parentIDs {
		o, err := r.GetObject(pid)
		if err != nil {
			return fmt.Errorf("could not find parent %s: %w", pid.String(), err)
		}
		if o.Type() != object.TypeCommit {
			return fmt.Errorf("invalid type for parent %s: expected %s, got %s", pid.String(), object.TypeCommit, o.Type())
		}
	}
	return nil
}

// NewCommit creates, persists, and returns a new Commit object, and
// moves the reference named refName to point to it.
func (r *Repository) NewCommit(refName string, tree *object.Tree, author object.Signature, opts *object.CommitOptions) (*object.Commit, error) {
	if err := r.validateParents(opts.ParentsID); err != nil {
		return nil, err
	}

	c := object.NewCommit(tree.ID(), author, opts)
	if _, err := r.dotGit.WriteObject(c.ToObject()); err != nil {
		return nil, fmt.Errorf("could not persist commit: %w", err)
	}

	ref := ginternals.NewReference(refName, c.ID())
	if err := r.dotGit.WriteReference(ref); err != nil {
		return nil, fmt.Errorf("could not update reference %s: %w", refName, err)
	}

	return c, nil
}

// NewDetachedCommit creates, persists, and returns a new Commit object
// without moving any reference.
func (r *Repository) NewDetachedCommit(tree *object.Tree, author object.Signature, opts *object.CommitOptions) (*object.Commit, error) {
	if err := r.validateParents(opts.ParentsID); err != nil {
		return nil, err
	}

	c := object.NewCommit(tree.ID(), author, opts)
	if _, err := r.dotGit.WriteObject(c.ToObject()); err != nil {
		return nil, fmt.Errorf("could not persist commit: %w", err)
	}
	return c, nil
}

// NewTag creates, persists, and returns a new annotated Tag object,
// and creates the reference pointing to it.
// ErrTagExists is returned if a tag with the same name already exists.
func (r *Repository) NewTag(p *object.TagParams) (*object.Tag, error) {
	tag, err := object.NewTag(p)
	if err != nil {
		return nil, err
	}

	if _, err := r.dotGit.WriteObject(tag.ToObject()); err != nil {
		return nil, fmt.Errorf("could not persist tag: %w", err)
	}

	ref := ginternals.NewReference(ginternals.LocalTagFullName(p.Name), tag.ID())
	if err := r.dotGit.WriteReferenceSafe(ref); err != nil {
		if errors.Is(err, ginternals.ErrRefExists) {
			return nil, ErrTagExists
		}
		return nil, fmt.Errorf("could not persist tag reference: %w", err)
	}

	return tag, nil
}

// NewLightweightTag creates and returns a reference pointing directly
// at target.
// ErrTagExists is returned if a tag with the same name already exists.
func (r *Repository) NewLightweightTag(name string, target ginternals.Oid) (*ginternals.Reference, error) {
	if _, err := r.dotGit.Object(target); err != nil {
		return nil, fmt.Errorf("tag target is not persisted: %w", object.ErrObjectInvalid)
	}

	ref := ginternals.NewReference(ginternals.LocalTagFullName(name), target)
	if err := r.dotGit.WriteReferenceSafe(ref); err != nil {
		if errors.Is(err, ginternals.ErrRefExists) {
			return nil, ErrTagExists
		}
		return nil, fmt.Errorf("could not persist tag reference: %w", err)
	}
	return ref, nil
}

// SetHead updates HEAD to point to ref, which must have been built
// with ginternals.NewReference() (to detach HEAD at a commit) or
// ginternals.NewSymbolicReference() (to point HEAD at a branch or
// another ref). ref.Name() is ignored: HEAD is always the name that
// gets written.
func (r *Repository) SetHead(ref *ginternals.Reference) error {
	var head *ginternals.Reference
	switch ref.Type() {
	case ginternals.SymbolicReference:
		head = ginternals.NewSymbolicReference(ginternals.Head, ref.SymbolicTarget())
	case ginternals.OidReference:
		head = ginternals.NewReference(ginternals.Head, ref.Target())
	default:
		return fmt.Errorf("reference type %d: %w", ref.Type(), ginternals.ErrUnknownRefType)
	}
	if err := r.dotGit.WriteReference(head); err != nil {
		return fmt.Errorf("could not update HEAD: %w", err)
	}
	return nil
}

// IsEmpty returns whether the work tree contains anything other than
// the .git directory. A bare repository is never considered empty.
func (r *Repository) IsEmpty() (bool, error) {
	if r.IsBare() {
		return false, nil
	}

	entries, err := afero.ReadDir(r.workTree, r.Config.WorkTreePath)
	if err != nil {
		return false, fmt.Errorf("could not read work tree: %w", err)
	}
	for _, e := range entries {
		if e.Name() != config.DefaultDotGitDirName {
			return false, nil
		}
	}
	return true, nil
}

// CheckoutTree writes the content of tree to the work tree, creating
// directories and files as needed. Blobs are written verbatim; Trees
// are recursed into. Tags and Commits (gitlinks/submodules) are not
// supported and make CheckoutTree fail with ErrMalformedTree.
//
// CheckoutTree refuses to run on a non-empty work tree, unless force
// is set to true.
func (r *Repository) CheckoutTree(tree *object.Tree, force bool) error {
	if r.IsBare() {
		return ErrBareRepository
	}

	if !force {
		empty, err := r.IsEmpty()
		if err != nil {
			return err
		}
		if !empty {
			return ErrRepositoryNotEmpty
		}
	}

	return r.checkoutTreeAt(tree, r.Config.WorkTreePath)
}

// checkoutTreeAt recursively materializes tree at dest, which must
// already exist.
func (r *Repository) checkoutTreeAt(tree *object.Tree, dest string) error {
	for _, entry := range tree.Entries() {
		path := filepath.Join(dest, entry.Path)

		switch entry.Mode {
		case object.ModeDirectory:
			subTree, err := r.GetTree(entry.ID)
			if err != nil {
				return fmt.Errorf("could not get tree %s: %w", entry.ID.String(), err)
			}
			if err := r.workTree.MkdirAll(path, 0o755); err != nil {
				return fmt.Errorf("could not create directory %s: %w", path, err)
			}
			if err := r.checkoutTreeAt(subTree, path); err != nil {
				return err
			}
		case object.ModeFile, object.ModeExecutable, object.ModeSymLink:
			o, err := r.GetObject(entry.ID)
			if err != nil {
				return fmt.Errorf("could not get blob %s: %w", entry.ID.String(), err)
			}
			if o.Type() != object.TypeBlob {
				return fmt.Errorf("entry %s has mode %o but is a %s: %w", entry.Path, entry.Mode, o.Type(), ErrMalformedTree)
			}
			if err := afero.WriteFile(r.workTree, path, o.AsBlob().Bytes(), fs.FileMode(entry.Mode&0o777)); err != nil {
				return fmt.Errorf("could not write %s: %w", path, err)
			}
		default:
			return fmt.Errorf("entry %s has unsupported mode %o: %w", entry.Path, entry.Mode, ErrMalformedTree)
		}
	}
	return nil
}

// Log walks the first-parent ancestry of the commit resolved from
// startRef (a ref name, like "refs/heads/master", or anything
// GetReference accepts), calling f on every commit starting with the
// most recent one. The walk stops when it reaches a commit with no
// parent, or when f returns CommitWalkStop. ErrNotACommit is returned
// if startRef, or one of its ancestors, doesn't resolve to a commit.
func (r *Repository) Log(startRef string, f CommitWalkFunc) error {
	ref, err := r.GetReference(startRef)
	if err != nil {
		return fmt.Errorf("could not resolve %s: %w", startRef, err)
	}

	oid := ref.Target()
	for {
		o, err := r.GetObject(oid)
		if err != nil {
			return fmt.Errorf("could not get commit %s: %w", oid.String(), err)
		}
		if o.Type() != object.TypeCommit {
			return fmt.Errorf("%s is a %s: %w", oid.String(), o.Type(), ErrNotACommit)
		}
		c, err := o.AsCommit()
		if err != nil {
			return err
		}

		if err := f(c); err != nil {
			if err == CommitWalkStop { //nolint:errorlint,goerr113 // it's a fake error so no need to use Error.Is()
				return nil
			}
			return err
		}

		parents := c.ParentIDs()
		if len(parents) == 0 {
			return nil
		}
		oid = parents[0]
	}
}
