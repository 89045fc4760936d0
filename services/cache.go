package services

import (
	"sync"

	"github.com/Emerc92/futsapp-tournament-hub/models"
)

// ViewCache memoizes computed standings and bracket views per tournament.
// The match ledger is the source of truth: every result write must call
// Invalidate for its tournament before the write is acknowledged, so reads
// never serve a view older than the last acknowledged result.
type ViewCache struct {
	mu        sync.RWMutex
	standings map[string][]models.Standing
	brackets  map[string][]models.BracketNode
}

func NewViewCache() *ViewCache {
	return &ViewCache{
		standings: make(map[string][]models.Standing),
		brackets:  make(map[string][]models.BracketNode),
	}
}

func (c *ViewCache) GetStandings(tournamentID string) ([]models.Standing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rows, ok := c.standings[tournamentID]
	return rows, ok
}

func (c *ViewCache) PutStandings(tournamentID string, rows []models.Standing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.standings[tournamentID] = rows
}

func (c *ViewCache) GetBracket(tournamentID string) ([]models.BracketNode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	nodes, ok := c.brackets[tournamentID]
	return nodes, ok
}

func (c *ViewCache) PutBracket(tournamentID string, nodes []models.BracketNode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.brackets[tournamentID] = nodes
}

func (c *ViewCache) Invalidate(tournamentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.standings, tournamentID)
	delete(c.brackets, tournamentID)
}
