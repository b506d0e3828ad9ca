package agentjail

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/zhangyunhao116/agentjail/internal/gitconfig"
	"github.com/zhangyunhao116/agentjail/internal/pathutil"
	"github.com/zhangyunhao116/agentjail/platform"
)

// runGit executes a git query in dir and returns its trimmed output. It is a
// function variable so tests can fake repository layouts without spawning
// git.
var runGit = func(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	return strings.TrimSpace(string(out)), err
}

// repoMetadata describes the version-control metadata of the working tree.
type repoMetadata struct {
	// GitDir is the metadata directory of this checkout. For a linked
	// working tree it is the per-checkout directory under the primary
	// repository's metadata.
	GitDir string

	// CommonDir is the metadata directory shared with the primary checkout.
	// Equal to GitDir for regular, non-linked repositories.
	CommonDir string
}

// discoverRepo queries git for the metadata directories of the repository
// containing workDir. Returns false when workDir is not inside a repository.
func discoverRepo(workDir string) (*repoMetadata, bool) {
	gitDir, err := runGit(workDir, "rev-parse", "--absolute-git-dir")
	if err != nil || gitDir == "" {
		return nil, false
	}

	commonDir, err := runGit(workDir, "rev-parse", "--git-common-dir")
	if err != nil || commonDir == "" {
		commonDir = gitDir
	}
	if !filepath.IsAbs(commonDir) {
		// rev-parse emits the common dir relative to the working directory.
		commonDir = filepath.Join(workDir, commonDir)
	}

	return &repoMetadata{
		GitDir:    filepath.Clean(gitDir),
		CommonDir: filepath.Clean(commonDir),
	}, true
}

// addRepoMounts exposes the version-control metadata needed for commit and
// push. For a linked working tree three exposures are required: the
// checkout's own metadata directory, the shared common directory, and — for
// path traversal — the directory containing the common directory, read-only.
// The traversal mount is skipped when it is the project root itself.
func addRepoMounts(plan *platform.Plan, workDir string) {
	repo, ok := discoverRepo(workDir)
	if !ok {
		return
	}

	plan.AddMount(platform.MountSpec{Source: repo.GitDir, Mode: platform.ModeReadWrite, Required: true})

	if repo.CommonDir != repo.GitDir {
		plan.AddMount(platform.MountSpec{Source: repo.CommonDir, Mode: platform.ModeReadWrite, Required: true})

		parent := filepath.Dir(repo.CommonDir)
		if parent != filepath.Clean(workDir) {
			plan.AddMount(platform.ReadOnly(parent))
		}
	}
}

// globalGitConfigs returns the candidate global git config files for home.
func globalGitConfigs(home string) []string {
	return []string{
		filepath.Join(home, ".gitconfig"),
		filepath.Join(home, ".config", "git", "config"),
	}
}

// addGitConfigMounts exposes the user's git configuration read-only.
// Symbolic links are resolved first so that a dotfile symlinked out of a
// dotfiles repository is bound by its real target; include directives in the
// global config are parsed and each referenced file is bound as well.
func addGitConfigMounts(plan *platform.Plan, home string) {
	for _, cfg := range globalGitConfigs(home) {
		resolved := pathutil.Resolve(cfg)
		plan.AddMount(platform.ReadOnly(resolved))

		data, err := os.ReadFile(resolved)
		if err != nil {
			continue
		}
		for _, inc := range gitconfig.IncludePaths(data) {
			target := gitconfig.Resolve(inc, filepath.Dir(resolved), home)
			plan.AddMount(platform.ReadOnly(pathutil.Resolve(target)))
		}
	}
}
