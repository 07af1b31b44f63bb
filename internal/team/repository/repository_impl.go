package repository

import (
	"github.com/abbydulski/Runway-sub000/internal/team/domain"
	"github.com/abbydulski/Runway-sub000/pkg/repository"
	"gorm.io/gorm"
)

type Repository = repository.Repository[domain.Team]

func NewRepository(db *gorm.DB) Repository {
	return repository.ProvideStore[domain.Team](db)
}
