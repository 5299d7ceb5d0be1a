package registrar

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/finvault/affiliate/common/apperr"
	"github.com/finvault/affiliate/common/logger"
	"github.com/finvault/affiliate/common/models"
)

// fakeGraph is an in-memory reflink table plus affiliation edge set
type fakeGraph struct {
	reflinks map[int64]*models.Reflink
	edges    map[[2]int64]int16 // (refid, slaveUID) -> level

	insertErr error
	lookupErr error
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		reflinks: make(map[int64]*models.Reflink),
		edges:    make(map[[2]int64]int16),
	}
}

func (f *fakeGraph) addReflink(refid, owner int64, active bool) {
	f.reflinks[refid] = &models.Reflink{
		Refid:       refid,
		OwnerUID:    owner,
		Description: "test link",
		Active:      active,
	}
}

func (f *fakeGraph) Get(ctx context.Context, refid int64) (*models.Reflink, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	reflink, ok := f.reflinks[refid]
	if !ok {
		return nil, apperr.NotFound("reflink %d not found", refid)
	}
	return reflink, nil
}

func (f *fakeGraph) ActiveMemberships(ctx context.Context, uid int64, maxLevel int16) ([]models.Affiliation, error) {
	var memberships []models.Affiliation
	for key, level := range f.edges {
		if key[1] != uid || level > maxLevel {
			continue
		}
		if reflink, ok := f.reflinks[key[0]]; !ok || !reflink.Active {
			continue
		}
		memberships = append(memberships, models.Affiliation{
			Refid:      key[0],
			SlaveUID:   key[1],
			SlaveLevel: level,
		})
	}
	sort.Slice(memberships, func(i, j int) bool {
		return memberships[i].Refid < memberships[j].Refid
	})
	return memberships, nil
}

func (f *fakeGraph) InsertEdges(ctx context.Context, edges []models.Affiliation) ([]models.Affiliation, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	var inserted []models.Affiliation
	for _, edge := range edges {
		key := [2]int64{edge.Refid, edge.SlaveUID}
		if _, exists := f.edges[key]; exists {
			continue
		}
		f.edges[key] = edge.SlaveLevel
		inserted = append(inserted, edge)
	}
	return inserted, nil
}

func (f *fakeGraph) level(refid, uid int64) (int16, bool) {
	level, ok := f.edges[[2]int64{refid, uid}]
	return level, ok
}

func newTestRegistrar(graph *fakeGraph) *Registrar {
	return New(graph, graph, logger.New("error", "text"))
}

func signup(uid, refid int64) models.SignupEvent {
	return models.SignupEvent{UID: uid, Refid: refid}
}

func TestRegister_DirectEdge(t *testing.T) {
	graph := newFakeGraph()
	graph.addReflink(10, 1, true)

	reg := newTestRegistrar(graph)
	require.NoError(t, reg.Register(context.Background(), signup(2, 10)))

	level, ok := graph.level(10, 2)
	require.True(t, ok)
	require.Equal(t, int16(1), level)
}

func TestRegister_PropagatesThroughChain(t *testing.T) {
	graph := newFakeGraph()

	// Chain of referrals: owner(n) refers owner(n+1) via reflink 10n
	graph.addReflink(10, 1, true)
	graph.addReflink(20, 2, true)
	graph.addReflink(30, 3, true)
	graph.addReflink(40, 4, true)
	graph.addReflink(50, 5, true)

	reg := newTestRegistrar(graph)
	ctx := context.Background()

	require.NoError(t, reg.Register(ctx, signup(2, 10)))
	require.NoError(t, reg.Register(ctx, signup(3, 20)))
	require.NoError(t, reg.Register(ctx, signup(4, 30)))
	require.NoError(t, reg.Register(ctx, signup(5, 40)))
	require.NoError(t, reg.Register(ctx, signup(6, 50)))

	// User 6 lands at each ancestor pyramid one level deeper
	for _, want := range []struct {
		refid int64
		level int16
	}{
		{50, 1}, {40, 2}, {30, 3}, {20, 4},
	} {
		level, ok := graph.level(want.refid, 6)
		require.True(t, ok, "expected edge in pyramid %d", want.refid)
		require.Equal(t, want.level, level, "pyramid %d", want.refid)
	}
}

func TestRegister_DepthCap(t *testing.T) {
	graph := newFakeGraph()
	for i := int64(1); i <= 6; i++ {
		graph.addReflink(i*10, i, true)
	}

	reg := newTestRegistrar(graph)
	ctx := context.Background()

	for i := int64(2); i <= 7; i++ {
		require.NoError(t, reg.Register(ctx, signup(i, (i-1)*10)))
	}

	// User 7 is five referrals deep from pyramid 20; the cap cuts at 4
	_, ok := graph.level(20, 7)
	require.False(t, ok, "edge beyond the depth cap must not exist")

	level, ok := graph.level(30, 7)
	require.True(t, ok)
	require.Equal(t, models.MaxLevel, level)
}

func TestRegister_MultipleRoots(t *testing.T) {
	graph := newFakeGraph()

	// User 3 sits in two unrelated pyramids at level 1
	graph.addReflink(10, 1, true)
	graph.addReflink(20, 2, true)
	graph.addReflink(30, 3, true)

	reg := newTestRegistrar(graph)
	ctx := context.Background()

	require.NoError(t, reg.Register(ctx, signup(3, 10)))
	graph.edges[[2]int64{20, 3}] = 1 // seeded membership in the second pyramid

	require.NoError(t, reg.Register(ctx, signup(4, 30)))

	// The new user joins the referrer's pyramid plus both ancestor pyramids
	wantEdges := map[[2]int64]int16{
		{30, 4}: 1,
		{10, 4}: 2,
		{20, 4}: 2,
	}
	for key, wantLevel := range wantEdges {
		level, ok := graph.level(key[0], 4)
		require.True(t, ok, "pyramid %d", key[0])
		require.Equal(t, wantLevel, level, "pyramid %d", key[0])
	}
}

func TestRegister_Idempotent(t *testing.T) {
	graph := newFakeGraph()
	graph.addReflink(10, 1, true)

	reg := newTestRegistrar(graph)
	ctx := context.Background()

	require.NoError(t, reg.Register(ctx, signup(2, 10)))
	require.NoError(t, reg.Register(ctx, signup(2, 10)))

	require.Len(t, graph.edges, 1)
	level, _ := graph.level(10, 2)
	require.Equal(t, int16(1), level)
}

func TestRegister_InactiveReflinkSkipsDirectEdge(t *testing.T) {
	graph := newFakeGraph()

	// Owner 2 is a level-1 member of pyramid 10; their reflink 20 is
	// deactivated before user 3 signs up through it
	graph.addReflink(10, 1, true)
	graph.addReflink(20, 2, false)
	graph.edges[[2]int64{10, 2}] = 1

	reg := newTestRegistrar(graph)
	require.NoError(t, reg.Register(context.Background(), signup(3, 20)))

	// No direct edge, but propagation through the owner still happens
	_, ok := graph.level(20, 3)
	require.False(t, ok)

	level, ok := graph.level(10, 3)
	require.True(t, ok)
	require.Equal(t, int16(2), level)
}

func TestRegister_InactiveAncestorReflinkSkipsPropagation(t *testing.T) {
	graph := newFakeGraph()

	// The ancestor membership's owning reflink is deactivated, so it no
	// longer attracts new members
	graph.addReflink(10, 1, false)
	graph.addReflink(20, 2, true)
	graph.edges[[2]int64{10, 2}] = 1

	reg := newTestRegistrar(graph)
	require.NoError(t, reg.Register(context.Background(), signup(3, 20)))

	level, ok := graph.level(20, 3)
	require.True(t, ok)
	require.Equal(t, int16(1), level)

	_, ok = graph.level(10, 3)
	require.False(t, ok)
}

func TestRegister_UnknownReflinkDiscarded(t *testing.T) {
	graph := newFakeGraph()

	reg := newTestRegistrar(graph)
	require.NoError(t, reg.Register(context.Background(), signup(2, 99)))
	require.Empty(t, graph.edges)
}

func TestRegister_MalformedEventDiscarded(t *testing.T) {
	graph := newFakeGraph()
	graph.addReflink(10, 1, true)

	reg := newTestRegistrar(graph)
	ctx := context.Background()

	require.NoError(t, reg.Register(ctx, signup(0, 10)))
	require.NoError(t, reg.Register(ctx, signup(2, 0)))
	require.Empty(t, graph.edges)
}

func TestRegister_TwoGenerationScenario(t *testing.T) {
	graph := newFakeGraph()
	reg := newTestRegistrar(graph)
	ctx := context.Background()

	// Owner 1 creates reflink 10; user 2 signs up through it, creates
	// reflink 20, and user 3 signs up through that
	graph.addReflink(10, 1, true)
	require.NoError(t, reg.Register(ctx, signup(2, 10)))

	graph.addReflink(20, 2, true)
	require.NoError(t, reg.Register(ctx, signup(3, 20)))

	counts := models.NewMemberCounts()
	for key, level := range graph.edges {
		if key[0] == 10 {
			counts[level]++
		}
	}
	require.Equal(t, models.MemberCounts{1: 1, 2: 1, 3: 0, 4: 0}, counts)
}

func TestRegister_StorageErrorPropagates(t *testing.T) {
	graph := newFakeGraph()
	graph.addReflink(10, 1, true)
	graph.insertErr = errors.New("connection reset")

	reg := newTestRegistrar(graph)
	err := reg.Register(context.Background(), signup(2, 10))
	require.Error(t, err)
	require.Empty(t, graph.edges)
}

func TestRegister_LookupErrorPropagates(t *testing.T) {
	graph := newFakeGraph()
	graph.lookupErr = errors.New("connection reset")

	reg := newTestRegistrar(graph)
	require.Error(t, reg.Register(context.Background(), signup(2, 10)))
}

func BenchmarkRegister(b *testing.B) {
	graph := newFakeGraph()
	for i := int64(1); i <= 4; i++ {
		graph.addReflink(i*10, i, true)
	}
	graph.edges[[2]int64{10, 2}] = 1
	graph.edges[[2]int64{10, 3}] = 2
	graph.edges[[2]int64{20, 3}] = 1
	graph.edges[[2]int64{10, 4}] = 3
	graph.edges[[2]int64{20, 4}] = 2
	graph.edges[[2]int64{30, 4}] = 1

	reg := newTestRegistrar(graph)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		uid := int64(100 + i)
		if err := reg.Register(ctx, signup(uid, 40)); err != nil {
			b.Fatal(err)
		}
	}
}
