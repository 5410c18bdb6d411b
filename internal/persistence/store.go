package persistence

import "sync"

// Topology is an opaque market-topology document (spec.md §6 "POST
// /market | Market topology"). The spec leaves its internal shape
// undefined beyond "topology, or 404" — it is stored and returned as
// received.
type Topology map[string]interface{}

// Measurement and Forecast are opaque schema-array entries (spec.md §6);
// both are filtered by area_uuid and a time range, so only those two
// fields are pulled out of the otherwise-opaque payload.
type Reading struct {
	AreaUUID string                 `json:"area_uuid"`
	Time     uint64                 `json:"time"`
	Payload  map[string]interface{} `json:"-"`
}

// Store is the in-memory backing store for the persistence service. A
// real deployment would back this with the teacher's cockroachdb/pebble
// key-value store (see internal/storage); this module keeps the
// persistence-service surface in memory and relies on internal/storage for
// the on-chain tier's durability, matching the teacher's separation
// between app state (in memory) and block/cert storage (pebble).
type Store struct {
	mu sync.RWMutex

	orders        []WireOrder
	trades        []WireTrade
	measurements  []Reading
	forecasts     []Reading
	markets       map[string]Topology
	communityByID map[string]Topology
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		markets:       make(map[string]Topology),
		communityByID: make(map[string]Topology),
	}
}

func (s *Store) InsertOrders(orders []WireOrder) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(orders))
	for i, o := range orders {
		s.orders = append(s.orders, o)
		ids[i] = o.Hash
	}
	return ids
}

func (s *Store) Orders(marketID string, start, end uint64) []WireOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []WireOrder
	for _, o := range s.orders {
		if marketID != "" && o.Component.MarketID != marketID {
			continue
		}
		if o.Component.TimeSlot < start || (end != 0 && o.Component.TimeSlot > end) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (s *Store) InsertTrades(trades []WireTrade) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(trades))
	for i, t := range trades {
		s.trades = append(s.trades, t)
		ids[i] = t.TradeUUID
	}
	return ids
}

func (s *Store) Trades(marketID string, start, end uint64) []WireTrade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []WireTrade
	for _, t := range s.trades {
		if marketID != "" && t.MarketID != marketID {
			continue
		}
		if t.TimeSlot < start || (end != 0 && t.TimeSlot > end) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (s *Store) InsertMeasurements(readings []Reading) []string {
	return insertReadings(&s.mu, &s.measurements, readings)
}

func (s *Store) Measurements(areaUUID string, start, end uint64) []Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterReadings(s.measurements, areaUUID, start, end)
}

func (s *Store) InsertForecasts(readings []Reading) []string {
	return insertReadings(&s.mu, &s.forecasts, readings)
}

func (s *Store) Forecasts(areaUUID string, start, end uint64) []Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterReadings(s.forecasts, areaUUID, start, end)
}

func insertReadings(mu *sync.RWMutex, dst *[]Reading, readings []Reading) []string {
	mu.Lock()
	defer mu.Unlock()
	ids := make([]string, len(readings))
	for i, r := range readings {
		*dst = append(*dst, r)
		ids[i] = r.AreaUUID
	}
	return ids
}

func filterReadings(src []Reading, areaUUID string, start, end uint64) []Reading {
	var out []Reading
	for _, r := range src {
		if areaUUID != "" && r.AreaUUID != areaUUID {
			continue
		}
		if r.Time < start || (end != 0 && r.Time > end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *Store) PutMarket(marketID string, topo Topology) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[marketID] = topo
}

func (s *Store) Market(marketID string) (Topology, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topo, ok := s.markets[marketID]
	return topo, ok
}

func (s *Store) PutCommunityMarket(communityUUID string, timeSlot string, topo Topology) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.communityByID[communityUUID+"@"+timeSlot] = topo
}

func (s *Store) CommunityMarket(communityUUID, timeSlot string) (Topology, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topo, ok := s.communityByID[communityUUID+"@"+timeSlot]
	return topo, ok
}
