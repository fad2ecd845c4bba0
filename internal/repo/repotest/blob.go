package repotest

import (
	"github.com/andreyxaxa/Spectra/internal/repo/persistent"
	"github.com/spf13/afero"
)

// NewBlobRepo is a blob store in memory, lost with the process.
func NewBlobRepo() *persistent.FSBlobRepo {
	return persistent.NewAferoBlobRepo(afero.NewMemMapFs())
}
