package ports

import "github.com/arkade-os/kittyd/internal/core/domain"

type RepoManager interface {
	Kitties() domain.KittyRepository
	Close()
}
