package models

import (
	"fmt"

	authmodels "github.com/brizzai/devdash/internal/auth/models"
	"github.com/charmbracelet/lipgloss"
)

// RepoItem wraps a Repository for display in the list
// Implements list.Item
type RepoItem struct {
	Repo authmodels.Repository
}

func (i RepoItem) Title() string {
	return fmt.Sprintf("%s  ★ %d", i.Repo.FullName, i.Repo.Stars)
}

func (i RepoItem) Description() string {
	desc := authmodels.Field(i.Repo.Description)
	if i.Repo.Private {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f56a96")).
			Render("[private] ") + desc
	}
	return desc
}

func (i RepoItem) FilterValue() string {
	return i.Repo.FullName + " " + i.Repo.Description
}
