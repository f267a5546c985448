package main

import (
	"context"
	"strings"

	"github.com/frantjc/port-registry/.dagger/internal/dagger"
	xslices "github.com/frantjc/x/slices"
)

type PortregDev struct {
	Source *dagger.Directory
}

func New(
	ctx context.Context,
	// +optional
	// +defaultPath="."
	src *dagger.Directory,
) (*PortregDev, error) {
	return &PortregDev{
		Source: src,
	}, nil
}

var goModules = []string{
	".dagger/",
}

func (m *PortregDev) goContainer() *dagger.Container {
	return dag.Go(dagger.GoOpts{
		Module: m.Source.Filter(dagger.DirectoryFilterOpts{
			Exclude: append(goModules, ".github/"),
		}),
	}).
		Container()
}

func (m *PortregDev) Fmt(ctx context.Context) *dagger.Changeset {
	root := m.goContainer().
		WithExec([]string{"go", "fmt", "./..."}).
		Directory(".")

	for _, module := range goModules {
		root = root.WithDirectory(
			module,
			dag.Go(dagger.GoOpts{
				Module: m.Source.Directory(module).Filter(dagger.DirectoryFilterOpts{
					Exclude: xslices.Filter(goModules, func(m string, _ int) bool {
						return strings.HasPrefix(m, module)
					}),
				}),
			}).
				Container().
				WithExec([]string{"go", "fmt", "./..."}).
				Directory("."),
		)
	}

	return root.Changes(m.Source)
}

const (
	gid   = "1001"
	uid   = gid
	group = "portreg"
	user  = group
	owner = user + ":" + group
	home  = "/home/" + user
)

// Container returns an image with portreg as its entrypoint and the
// registry kept in the user's home directory.
func (m *PortregDev) Container(ctx context.Context) *dagger.Container {
	return dag.Wolfi().
		Container().
		WithExec([]string{"addgroup", "-S", "-g", gid, group}).
		WithExec([]string{"adduser", "-S", "-G", group, "-u", uid, user}).
		WithEnvVariable("PATH", home+"/.local/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithEnvVariable("PORTREG_REGISTRY", home+"/portreg.json").
		WithFile(
			home+"/.local/bin/portreg", m.Binary(ctx),
			dagger.ContainerWithFileOpts{Expand: true, Owner: owner, Permissions: 0700}).
		WithExec([]string{"chown", "-R", owner, home}).
		WithUser(user).
		WithEntrypoint([]string{"portreg"})
}

func (m *PortregDev) Version(ctx context.Context) string {
	version := "v0.0.0-unknown"

	gitRef := m.Source.AsGit().LatestVersion()

	if ref, err := gitRef.Ref(ctx); err == nil {
		version = strings.TrimPrefix(ref, "refs/tags/")
	}

	if latestVersionCommit, err := gitRef.Commit(ctx); err == nil {
		if headCommit, err := m.Source.AsGit().Head().Commit(ctx); err == nil && headCommit != latestVersionCommit {
			version += "-" + headCommit[:min(len(headCommit), 7)]
		}
	}

	if empty, _ := m.Source.AsGit().Uncommitted().IsEmpty(ctx); !empty {
		version += "+dirty"
	}

	return version
}

func (m *PortregDev) Binary(ctx context.Context) *dagger.File {
	return dag.Go(dagger.GoOpts{
		Module: m.Source.Filter(dagger.DirectoryFilterOpts{
			Exclude: append(goModules, ".github/"),
		}),
	}).
		Build(dagger.GoBuildOpts{
			Pkg:     "./cmd/portreg",
			Ldflags: "-s -w -X main.VersionCore=" + strings.TrimPrefix(m.Version(ctx), "v"),
		})
}

func (m *PortregDev) Test(ctx context.Context) (string, error) {
	return m.goContainer().
		WithExec([]string{"go", "test", "-cover", "-race", "./..."}).
		CombinedOutput(ctx)
}

func (m *PortregDev) Vet(ctx context.Context) (string, error) {
	return m.goContainer().
		WithExec([]string{"go", "vet", "./..."}).
		CombinedOutput(ctx)
}

func (m *PortregDev) Vulncheck(ctx context.Context) (string, error) {
	return m.goContainer().
		WithExec([]string{"go", "install", "golang.org/x/vuln/cmd/govulncheck@v1.1.4"}).
		WithExec([]string{"govulncheck", "./..."}).
		CombinedOutput(ctx)
}

func (m *PortregDev) Staticcheck(ctx context.Context) (string, error) {
	return m.goContainer().
		WithExec([]string{"go", "install", "honnef.co/go/tools/cmd/staticcheck@v0.6.1"}).
		WithExec([]string{"staticcheck", "./..."}).
		CombinedOutput(ctx)
}
