package github

import (
	"strings"

	giturls "github.com/whilp/git-urls"

	"github.com/joescharf/crev/internal/svcerr"
)

// Host is the only code-hosting domain repositories may live on.
const Host = "github.com"

// RepositoryReference identifies a repository on Host.
type RepositoryReference struct {
	Host  string
	Owner string
	Name  string
}

// FullName returns owner/name.
func (r RepositoryReference) FullName() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoURL validates a repository URL and extracts owner and name from
// the first two path segments. HTTPS and scp-style SSH URLs are accepted.
// The host must be exactly Host: no port, no case variants.
func ParseRepoURL(raw string) (RepositoryReference, error) {
	u, err := giturls.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host != Host {
		return RepositoryReference{}, svcerr.New("Invalid GitHub URL. Must be a github.com repository").With("url", raw)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return RepositoryReference{}, svcerr.New("Invalid repository path").With("url", raw)
	}
	owner, name := parts[0], strings.TrimSuffix(parts[1], ".git")
	if owner == "" || name == "" {
		return RepositoryReference{}, svcerr.New("Invalid repository path").With("url", raw)
	}

	return RepositoryReference{Host: Host, Owner: owner, Name: name}, nil
}
