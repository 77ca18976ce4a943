// Package git clones the repository named by a push hook into a job's working
// directory.
//
// Two backends are provided:
//   - ExecCloner shells out to the git binary, so host SSH configuration and
//     credential helpers apply unchanged.
//   - GoGitCloner clones in-process with go-git, authenticating SSH remotes
//     with an explicit private key.
//
// Both return the captured clone output so a failure can be reported back to
// the caller verbatim.
package git
