package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheNeerajGarg/gatekeeper/pkg/gate"
)

func gitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	gitCmd(t, dir, "init", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("readme\n"), 0o644))
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-m", "initial")
	return dir
}

func TestBranch(t *testing.T) {
	dir := initRepo(t)
	gitCmd(t, dir, "checkout", "-b", "feature/login")

	branch, err := Branch(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "feature/login", branch)
}

func TestBranchOutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	_, err := Branch(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, gate.ErrContextSourceUnavailable)
}

func TestChangedFiles(t *testing.T) {
	dir := initRepo(t)
	gitCmd(t, dir, "checkout", "-b", "feature/change")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "app.py"), []byte("pass\n"), 0o644))
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-m", "add app")

	// A staged but uncommitted change
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staged.txt"), []byte("x\n"), 0o644))
	gitCmd(t, dir, "add", "staged.txt")

	files, err := ChangedFiles(context.Background(), dir, "main")
	require.NoError(t, err)
	assert.Contains(t, files, "src/app.py")
	assert.Contains(t, files, "staged.txt")
}

func TestProvidersCollect(t *testing.T) {
	dir := initRepo(t)

	branchFact, err := (&BranchProvider{}).Collect(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "branch", branchFact.ID())
	assert.Equal(t, "main", branchFact.Value())

	filesFact, err := (&ChangedFilesProvider{BaseRef: "main"}).Collect(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "changed_files", filesFact.ID())
}
