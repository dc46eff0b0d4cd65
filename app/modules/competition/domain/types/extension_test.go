package comptypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtensionLifecycle(t *testing.T) {
	var cfg GroupsConfig
	found, err := GetExtensionData(nil, ExtensionGroups, "", &cfg)
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, GroupsConfig{Groups: 1}, cfg, "default applies when absent")

	original := []Extension{{ID: "other.thing", Data: []byte(`{"x":1}`)}}
	exts, err := SetExtensionData(original, ExtensionGroups, "", GroupsConfig{Groups: 4})
	require.NoError(t, err)
	require.Len(t, original, 1, "input slice is not modified")
	require.Len(t, exts, 2)
	require.Equal(t, "compstaff.groups", exts[1].ID)

	found, err = GetExtensionData(exts, ExtensionGroups, DefaultNamespace, &cfg)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 4, cfg.Groups)

	exts, err = SetExtensionData(exts, ExtensionGroups, "", GroupsConfig{Groups: 2})
	require.NoError(t, err)
	require.Len(t, exts, 2, "set replaces existing block")
	require.Equal(t, 2, GroupsConfigFor(Activity{Extensions: exts}).Groups)

	exts = RemoveExtension(exts, ExtensionGroups, "")
	require.Len(t, exts, 1)
	require.Equal(t, 1, GroupsConfigFor(Activity{Extensions: exts}).Groups)
}

func TestGetExtensionDataUnknownNameWithoutDefault(t *testing.T) {
	var out map[string]any
	found, err := GetExtensionData(nil, "unknown", "acme", &out)
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, out)
}

func TestCompetitionCloneIsDeep(t *testing.T) {
	station := 3
	comp := Competition{
		Persons: []Person{{RegistrantID: 1, Roles: []string{RoleDelegate}, Assignments: []Assignment{{ActivityID: 10, AssignmentCode: AssignmentCompetitor, StationNumber: &station}}}},
		Schedule: Schedule{Venues: []Venue{{ID: 1, Rooms: []Room{{ID: 1, Activities: []Activity{{ID: 1, ActivityCode: "333-r1", ChildActivities: []Activity{{ID: 2, ActivityCode: "333-r1-g1"}}}}}}}}},
	}

	clone := comp.Clone()
	clone.Persons[0].Assignments[0].ActivityID = 99
	*clone.Persons[0].Assignments[0].StationNumber = 7
	clone.Persons[0].Roles[0] = RoleOrganizer
	clone.Schedule.Venues[0].Rooms[0].Activities[0].ChildActivities[0].ID = 42

	require.Equal(t, 10, comp.Persons[0].Assignments[0].ActivityID)
	require.Equal(t, 3, *comp.Persons[0].Assignments[0].StationNumber)
	require.Equal(t, RoleDelegate, comp.Persons[0].Roles[0])
	require.Equal(t, 2, comp.Schedule.Venues[0].Rooms[0].Activities[0].ChildActivities[0].ID)
}
