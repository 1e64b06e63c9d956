package dashboard

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/collision-cli/internal/store"
)

func TestParseFilter_AbsentParamsPlaceNoConstraint(t *testing.T) {
	f, err := ParseFilter(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, store.CollisionFilter{}, f)
}

func TestParseFilter_BlankParamSelectsNothing(t *testing.T) {
	f, err := ParseFilter(url.Values{"borough": {""}, "month": {" "}, "time_of_day": {""}, "day": {"Monday", ""}})
	require.NoError(t, err)
	require.NotNil(t, f.Boroughs)
	assert.Empty(t, f.Boroughs)
	require.NotNil(t, f.Months)
	assert.Empty(t, f.Months)
	require.NotNil(t, f.TimesOfDay)
	assert.Empty(t, f.TimesOfDay)
	assert.Equal(t, []string{"Monday"}, f.Days)
	assert.Nil(t, f.Factors)
}

func TestParseFilter_HourRangeDefaults(t *testing.T) {
	f, err := ParseFilter(url.Values{"hour_min": {"18"}})
	require.NoError(t, err)
	require.NotNil(t, f.HourMin)
	require.NotNil(t, f.HourMax)
	assert.Equal(t, 18, *f.HourMin)
	assert.Equal(t, 24, *f.HourMax)
	assert.Nil(t, f.TimesOfDay)
}

func TestParseFilter_MonthNamesAndLimit(t *testing.T) {
	f, err := ParseFilter(url.Values{"month": {"mar", "12"}, "limit": {"50"}, "vehicle": {"Truck"}})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 12}, f.Months)
	assert.Equal(t, 50, f.Limit)
	assert.Equal(t, []string{"Truck"}, f.Vehicles)
}

func TestDescribe(t *testing.T) {
	lo, hi := 6, 12
	sel := Describe(store.CollisionFilter{
		Boroughs: []string{"Bronx", "Queens"},
		Months:   []int{7, 8},
		Factors:  []string{"Human Error"},
		HourMin:  &lo,
		HourMax:  &hi,
	})
	assert.Equal(t, Selection{
		Boroughs:   "Bronx, Queens",
		Months:     "July, August",
		Factors:    "Human Error",
		TimeFilter: "6-12h",
	}, sel)
}

func TestSelection_Pairs(t *testing.T) {
	sel := Selection{Months: "May", Vehicles: "Truck"}
	assert.Equal(t, [][2]string{{"Selected Months", "May"}, {"Vehicle Type(s)", "Truck"}}, sel.Pairs())
	assert.Empty(t, Selection{}.Pairs())
}
