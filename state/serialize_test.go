package state_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/simforge/simstate/assert"
	"github.com/simforge/simstate/component"
	"github.com/simforge/simstate/message"
	"github.com/simforge/simstate/state"
	"github.com/simforge/simstate/types"
)

func findEntity(msg *message.State, id types.EntityID) *message.Entity {
	for i := range msg.Entities {
		if msg.Entities[i].ID == id {
			return &msg.Entities[i]
		}
	}
	return nil
}

func TestAddEntityToMessage(t *testing.T) {
	m, c := newManagerForTest(t)
	e := m.CreateEntity()
	m.CreateComponent(e, component.NewValue(c.pose, Pose{X: 1}))
	m.CreateComponent(e, component.NewValue(c.velocity, Velocity{Linear: 2}))

	msg := &message.State{}
	m.AddEntityToMessage(msg, e)

	ent := findEntity(msg, e)
	assert.NotNil(t, ent)
	assert.False(t, ent.Remove)
	assert.Len(t, ent.Components, 2)

	gotTypes := []types.ComponentTypeID{ent.Components[0].Type, ent.Components[1].Type}
	assert.ElementsMatch(t, []types.ComponentTypeID{poseTypeID, velocityTypeID}, gotTypes)
}

func TestAddEntityToMessageWithTypeFilter(t *testing.T) {
	m, c := newManagerForTest(t)
	e := m.CreateEntity()
	m.CreateComponent(e, component.NewValue(c.pose, Pose{}))
	m.CreateComponent(e, component.NewValue(c.velocity, Velocity{}))

	msg := &message.State{}
	m.AddEntityToMessage(msg, e, poseTypeID)

	ent := findEntity(msg, e)
	assert.Len(t, ent.Components, 1)
	assert.Equal(t, poseTypeID, ent.Components[0].Type)
}

func TestAddEntityToMessageUnknownEntity(t *testing.T) {
	m, _ := newManagerForTest(t)

	msg := &message.State{}
	m.AddEntityToMessage(msg, 42)

	ent := findEntity(msg, 42)
	assert.NotNil(t, ent, "an id-only entry is kept for unknown entities")
	assert.Empty(t, ent.Components)
}

func TestChangedStateReportsRemovedComponents(t *testing.T) {
	m, c := newManagerForTest(t)
	e := m.CreateEntity()
	m.CreateComponent(e, component.NewValue(c.pose, Pose{X: 1}))
	m.ClearNewlyCreatedEntities()
	m.SetAllComponentsUnchanged()

	assert.True(t, m.RemoveComponent(e, poseTypeID))

	msg := m.ChangedState()
	ent := findEntity(msg, e)
	assert.NotNil(t, ent)
	assert.Len(t, ent.Components, 1)
	assert.Equal(t, poseTypeID, ent.Components[0].Type)
	assert.True(t, ent.Components[0].Remove)
	assert.Equal(t, message.RemovedComponentData, string(ent.Components[0].Component),
		"removal entries carry the placeholder payload")
}

func TestChangedStateMarksEntitiesPendingRemoval(t *testing.T) {
	m, c := newManagerForTest(t)
	e := m.CreateEntity()
	m.CreateComponent(e, component.NewValue(c.pose, Pose{}))
	m.ClearNewlyCreatedEntities()
	m.SetAllComponentsUnchanged()

	m.RequestRemoveEntity(e, false)

	msg := m.ChangedState()
	ent := findEntity(msg, e)
	assert.NotNil(t, ent)
	assert.True(t, ent.Remove)
}

func TestChangedStateEmptyLedgers(t *testing.T) {
	m, c := newManagerForTest(t)
	e := m.CreateEntity()
	m.CreateComponent(e, component.NewValue(c.pose, Pose{}))
	m.ClearNewlyCreatedEntities()
	m.SetAllComponentsUnchanged()
	m.ClearRemovedComponents()

	msg := m.ChangedState()
	assert.Empty(t, msg.Entities)

	mapMsg := &message.StateMap{}
	m.ChangedStateMap(mapMsg)
	assert.Empty(t, mapMsg.Entities)
}

func TestStateWithFilters(t *testing.T) {
	m, c := newManagerForTest(t)
	e1 := m.CreateEntity()
	e2 := m.CreateEntity()
	m.CreateComponent(e1, component.NewValue(c.pose, Pose{}))
	m.CreateComponent(e2, component.NewValue(c.pose, Pose{}))
	m.CreateComponent(e2, component.NewValue(c.velocity, Velocity{}))

	msg := m.State([]types.EntityID{e2}, []types.ComponentTypeID{velocityTypeID})
	assert.Len(t, msg.Entities, 1)
	assert.Equal(t, e2, msg.Entities[0].ID)
	assert.Len(t, msg.Entities[0].Components, 1)
	assert.Equal(t, velocityTypeID, msg.Entities[0].Components[0].Type)
}

func TestStateMapFullSnapshot(t *testing.T) {
	m, c := newManagerForTest(t)
	e := m.CreateEntity()
	m.CreateComponent(e, component.NewValue(c.pose, Pose{X: 7}))

	msg := &message.StateMap{}
	m.StateMap(msg, nil, nil, true)

	assert.Len(t, msg.Entities, 1)
	ent := msg.Entities[e]
	assert.NotNil(t, ent)
	comp, ok := ent.Components[poseTypeID]
	assert.True(t, ok)
	assert.False(t, comp.Remove)
	assert.NotEmpty(t, comp.Component)
}

func TestStateMapIncrementalSkipsUnchanged(t *testing.T) {
	m, c := newManagerForTest(t)
	e := m.CreateEntity()
	m.CreateComponent(e, component.NewValue(c.pose, Pose{}))
	m.CreateComponent(e, component.NewValue(c.velocity, Velocity{}))
	m.ClearNewlyCreatedEntities()
	m.SetAllComponentsUnchanged()

	m.SetChanged(e, poseTypeID, types.PeriodicChange)

	msg := &message.StateMap{}
	m.StateMap(msg, nil, nil, false)

	ent := msg.Entities[e]
	assert.NotNil(t, ent, "periodic changes are included in incremental state")
	_, hasPose := ent.Components[poseTypeID]
	_, hasVelocity := ent.Components[velocityTypeID]
	assert.True(t, hasPose)
	assert.False(t, hasVelocity, "unchanged components are skipped")
}

func TestStateMapPicksUpNewEntitiesAfterReshard(t *testing.T) {
	m, c := newManagerForTest(t)
	e1 := m.CreateEntity()
	m.CreateComponent(e1, component.NewValue(c.pose, Pose{}))

	msg := &message.StateMap{}
	m.StateMap(msg, nil, nil, true)
	assert.Len(t, msg.Entities, 1)

	e2 := m.CreateEntity()
	m.CreateComponent(e2, component.NewValue(c.pose, Pose{}))

	msg = &message.StateMap{}
	m.StateMap(msg, nil, nil, true)
	assert.Len(t, msg.Entities, 2)
}

func TestStateMapParallelBuildIsDeterministic(t *testing.T) {
	m, c := newManagerForTest(t)

	for i := 0; i < 1000; i++ {
		e := m.CreateEntity()
		m.CreateComponent(e, component.NewValue(c.pose, Pose{X: float64(i)}))
		m.CreateComponent(e, component.NewValue(c.velocity, Velocity{Linear: float64(i)}))
		m.CreateComponent(e, component.NewValue(c.battery, Battery{Percent: float64(i % 100)}))
	}

	first := &message.StateMap{}
	m.StateMap(first, nil, nil, true)
	second := &message.StateMap{}
	m.StateMap(second, nil, nil, true)

	assert.Len(t, first.Entities, 1000)
	assert.Len(t, second.Entities, 1000)
	for id, want := range first.Entities {
		got, ok := second.Entities[id]
		assert.True(t, ok)
		assert.Len(t, got.Components, len(want.Components))
		for typeID, wantComp := range want.Components {
			gotComp, ok := got.Components[typeID]
			assert.True(t, ok)
			assert.True(t, bytes.Equal(wantComp.Component, gotComp.Component))
		}
	}
}

func TestSetStateRoundTrip(t *testing.T) {
	src, c := newManagerForTest(t)
	e1 := src.CreateEntity()
	e2 := src.CreateEntity()
	src.CreateComponent(e1, component.NewValue(c.pose, Pose{X: 1, Y: 2}))
	src.CreateComponent(e2, component.NewValue(c.velocity, Velocity{Linear: 3}))

	reg2, _ := newRegistryForTest(t)
	dst := state.NewManager(reg2)
	dst.SetState(src.State(nil, nil))

	assert.Equal(t, 2, dst.EntityCount())
	assert.True(t, dst.EntityHasComponentType(e1, poseTypeID))
	assert.True(t, dst.EntityHasComponentType(e2, velocityTypeID))

	srcBytes, err := src.ComponentBytes(e1, poseTypeID)
	assert.NilError(t, err)
	dstBytes, err := dst.ComponentBytes(e1, poseTypeID)
	assert.NilError(t, err)
	assert.True(t, bytes.Equal(srcBytes, dstBytes))
}

func TestSetStateMapRoundTrip(t *testing.T) {
	src, c := newManagerForTest(t)
	e1 := src.CreateEntity()
	src.CreateComponent(e1, component.NewValue(c.pose, Pose{X: 4}))

	msg := &message.StateMap{}
	src.StateMap(msg, nil, nil, true)

	reg2, _ := newRegistryForTest(t)
	dst := state.NewManager(reg2)
	dst.SetStateMap(msg)

	assert.True(t, dst.HasEntity(e1))
	comp := dst.Component(e1, poseTypeID)
	assert.NotNil(t, comp)
	assert.Equal(t, Pose{X: 4}, comp.(*component.Typed[Pose]).Value)
}

func TestSetStateRemovesEntities(t *testing.T) {
	m, _ := newManagerForTest(t)
	e := m.CreateEntity()

	msg := &message.State{}
	msg.Entities = append(msg.Entities, message.Entity{ID: e, Remove: true})

	m.SetState(msg)
	assert.True(t, m.IsMarkedForRemoval(e))
	m.ProcessRemoveEntityRequests()
	assert.False(t, m.HasEntity(e))
}

func TestSetStateRemovesComponents(t *testing.T) {
	src, c := newManagerForTest(t)
	e := src.CreateEntity()
	src.CreateComponent(e, component.NewValue(c.pose, Pose{X: 1}))
	src.CreateComponent(e, component.NewValue(c.velocity, Velocity{Linear: 2}))
	src.ClearNewlyCreatedEntities()
	src.SetAllComponentsUnchanged()

	assert.True(t, src.RemoveComponent(e, poseTypeID))
	msg := src.ChangedState()

	dst, cd := newManagerForTest(t)
	de := dst.CreateEntity()
	assert.Equal(t, e, de)
	dst.CreateComponent(de, component.NewValue(cd.pose, Pose{X: 1}))
	dst.CreateComponent(de, component.NewValue(cd.velocity, Velocity{Linear: 2}))

	dst.SetState(msg)
	assert.False(t, dst.EntityHasComponentType(de, poseTypeID),
		"the replicated removal detaches the component")
	assert.True(t, dst.EntityHasComponentType(de, velocityTypeID))
}

func TestSetStateMapRemovesComponents(t *testing.T) {
	m, c := newManagerForTest(t)
	e := m.CreateEntity()
	m.CreateComponent(e, component.NewValue(c.pose, Pose{}))

	msg := &message.StateMap{}
	ent := msg.Entity(e)
	ent.SetComponent(message.Component{
		Type:      poseTypeID,
		Component: []byte(message.RemovedComponentData),
		Remove:    true,
	})

	m.SetStateMap(msg)
	assert.False(t, m.EntityHasComponentType(e, poseTypeID))
}

func TestSetStateMapUpdatesInPlace(t *testing.T) {
	m, c := newManagerForTest(t)
	e := m.CreateEntity()
	m.CreateComponent(e, component.NewValue(c.pose, Pose{X: 1}))
	m.ClearNewlyCreatedEntities()
	m.SetAllComponentsUnchanged()

	payload, err := component.NewValue(c.pose, Pose{X: 9}).Serialize()
	assert.NilError(t, err)

	msg := &message.StateMap{HasOneTimeComponentChanges: true}
	msg.Entity(e).SetComponent(message.Component{Type: poseTypeID, Component: payload})

	m.SetStateMap(msg)

	comp := m.Component(e, poseTypeID)
	assert.Equal(t, Pose{X: 9}, comp.(*component.Typed[Pose]).Value)
	assert.Equal(t, types.OneTimeChange, m.ComponentState(e, poseTypeID),
		"the apply direction honors the one-time flag")

	msg.HasOneTimeComponentChanges = false
	m.SetStateMap(msg)
	assert.Equal(t, types.PeriodicChange, m.ComponentState(e, poseTypeID))
}

func TestSetStateUnknownTypeWarnsOnce(t *testing.T) {
	reg, _ := newRegistryForTest(t)
	var buf bytes.Buffer
	m := state.NewManager(reg, state.WithLogger(zerolog.New(&buf)))

	msg := &message.State{}
	msg.Entities = append(msg.Entities, message.Entity{
		ID: 1,
		Components: []message.Component{
			{Type: 999, Component: []byte(`{}`)},
		},
	})

	m.SetState(msg)
	assert.True(t, m.HasEntity(1), "the entity itself is still created")
	assert.Empty(t, m.ComponentTypes(1))

	m.SetState(msg)
	warnings := strings.Count(buf.String(), "can't be deserialized")
	assert.Equal(t, 1, warnings, "the warning fires once per type per manager")
}

func TestMessageMarshalRoundTrip(t *testing.T) {
	m, c := newManagerForTest(t)
	e := m.CreateEntity()
	m.CreateComponent(e, component.NewValue(c.pose, Pose{X: 1}))

	msg := m.State(nil, nil)
	bz, err := message.Marshal(msg)
	assert.NilError(t, err)

	var decoded message.State
	assert.NilError(t, message.Unmarshal(bz, &decoded))
	assert.Len(t, decoded.Entities, 1)
	assert.Equal(t, e, decoded.Entities[0].ID)
}
