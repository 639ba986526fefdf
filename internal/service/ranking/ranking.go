// Package ranking orders clients, agents and providers by spend or call
// volume with fully deterministic tie-breaking.
package ranking

import (
	"sort"

	"github.com/voicemon/voicemon/internal/service/cost"
	"github.com/voicemon/voicemon/pkg/models"
)

// Metric selects the primary sort key of a ranking
type Metric string

const (
	ByCost   Metric = "cost"
	ByVolume Metric = "volume"
)

// Valid reports whether m is a supported ranking metric
func (m Metric) Valid() bool {
	return m == ByCost || m == ByVolume
}

// TopN returns at most n groups sorted by total cost descending. Equal
// costs are ordered by call count descending, then by name ascending.
func TopN(s *models.Snapshot, key models.GroupKey, n int) ([]models.RankedEntity, error) {
	return Rank(s, key, n, ByCost)
}

// TopNByVolume returns at most n groups sorted by call count descending.
// Equal counts are ordered by total cost descending, then by name ascending.
func TopNByVolume(s *models.Snapshot, key models.GroupKey, n int) ([]models.RankedEntity, error) {
	return Rank(s, key, n, ByVolume)
}

// Rank groups the snapshot by key and returns the top n groups by metric
func Rank(s *models.Snapshot, key models.GroupKey, n int, metric Metric) ([]models.RankedEntity, error) {
	if n <= 0 {
		return nil, models.InvalidArgumentf("rank count must be positive, got %d", n)
	}
	if !metric.Valid() {
		return nil, models.InvalidArgumentf("unknown ranking metric %q", metric)
	}

	groups, err := cost.RollupBy(s, key)
	if err != nil {
		return nil, err
	}

	less := byCost
	if metric == ByVolume {
		less = byVolume
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return less(groups[i], groups[j])
	})

	if len(groups) > n {
		groups = groups[:n]
	}

	var clients map[string]string
	if key == models.GroupByAgent {
		clients = agentClients(s)
	}

	ranked := make([]models.RankedEntity, len(groups))
	for i, g := range groups {
		ranked[i] = models.RankedEntity{
			Rank:      i + 1,
			Name:      g.Name,
			Client:    clients[g.Name],
			CallCount: g.CallCount,
			TotalCost: g.TotalCost,
		}
	}
	return ranked, nil
}

// agentClients maps each agent to the client it serves. An agent seen
// with more than one client maps to "".
func agentClients(s *models.Snapshot) map[string]string {
	clients := make(map[string]string)
	if s == nil {
		return clients
	}
	for i := range s.Conversations {
		c := &s.Conversations[i]
		client, seen := clients[c.AgentID]
		switch {
		case !seen:
			clients[c.AgentID] = c.ClientName
		case client != c.ClientName:
			clients[c.AgentID] = ""
		}
	}
	return clients
}

func byCost(a, b models.EntityCost) bool {
	if a.TotalCost != b.TotalCost {
		return a.TotalCost > b.TotalCost
	}
	if a.CallCount != b.CallCount {
		return a.CallCount > b.CallCount
	}
	return a.Name < b.Name
}

func byVolume(a, b models.EntityCost) bool {
	if a.CallCount != b.CallCount {
		return a.CallCount > b.CallCount
	}
	if a.TotalCost != b.TotalCost {
		return a.TotalCost > b.TotalCost
	}
	return a.Name < b.Name
}
