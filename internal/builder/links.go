package builder

import (
	"path"
	"strings"

	"folio/internal/theme"
)

// repoLinks derives the repository, edit and issues URLs for the source
// file rel from whichever repository options the active theme supports.
func repoLinks(opts theme.Options, rel string) RepoLinks {
	if repo := strings.TrimRight(opts.Text("repository_url"), "/"); repo != "" {
		branch := opts.Text("repository_branch")
		if branch == "" {
			branch = "main"
		}
		return RepoLinks{
			Repository: repo,
			Edit:       repo + "/edit/" + branch + "/" + joinPath(opts.Text("path_to_docs"), rel),
			Issues:     repo + "/issues",
		}
	}

	if repo := strings.TrimRight(opts.Text("source_repository"), "/"); repo != "" {
		links := RepoLinks{Repository: repo}
		if branch := opts.Text("source_branch"); branch != "" {
			links.Edit = repo + "/edit/" + branch + "/" + joinPath(opts.Text("source_directory"), rel)
		}
		return links
	}

	if user, repo := opts.Text("github_user"), opts.Text("github_repo"); user != "" && repo != "" {
		base := "https://github.com/" + user + "/" + repo
		return RepoLinks{Repository: base, Issues: base + "/issues"}
	}
	return RepoLinks{}
}

func joinPath(dir, rel string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return rel
	}
	return path.Join(dir, rel)
}
