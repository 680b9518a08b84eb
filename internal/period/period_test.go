package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestType_CreatePeriod(t *testing.T) {
	now := time.Date(2026, time.February, 11, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		periodTyp Type
		wantID    string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"daily", Daily, "20260211", date(2026, 2, 11), date(2026, 2, 11)},
		{"weekly", Weekly, "2026W7", date(2026, 2, 9), date(2026, 2, 15)},
		{"monthly", Monthly, "202602", date(2026, 2, 1), date(2026, 2, 28)},
		{"quarterly", Quarterly, "2026Q1", date(2026, 1, 1), date(2026, 3, 31)},
		{"yearly", Yearly, "2026", date(2026, 1, 1), date(2026, 12, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.periodTyp.CreatePeriod(now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, p.ID)
			assert.True(t, tt.wantStart.Equal(p.StartDate), "start %s", p.StartDate)
			assert.True(t, tt.wantEnd.Equal(p.EndDate), "end %s", p.EndDate)
		})
	}
}

func TestType_CreatePeriod_Unsupported(t *testing.T) {
	_, err := Type("BiMonthly").CreatePeriod(time.Now())
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	tests := []struct {
		id      string
		wantEnd time.Time
		wantErr bool
	}{
		{id: "20260115", wantEnd: date(2026, 1, 15)},
		{id: "2026W3", wantEnd: date(2026, 1, 18)},
		{id: "202601", wantEnd: date(2026, 1, 31)},
		{id: "2026Q4", wantEnd: date(2026, 12, 31)},
		{id: "2026", wantEnd: date(2026, 12, 31)},
		{id: "202613", wantErr: true},
		{id: "20260230", wantErr: true},
		{id: "2026W03", wantErr: true},
		{id: "garbage", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p, err := Parse(tt.id, time.UTC)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, p.ID)
			assert.True(t, tt.wantEnd.Equal(p.EndDate), "end %s", p.EndDate)
		})
	}
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2026, time.March, 10, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(base, date(2026, 3, 10)))
	assert.Equal(t, 3, DaysBetween(base, date(2026, 3, 13)))
	assert.Equal(t, -5, DaysBetween(base, date(2026, 3, 5)))
	assert.Equal(t, 22, DaysBetween(base, date(2026, 4, 1)))
}

func TestFormatter_FormatPeriod(t *testing.T) {
	now := date(2026, 2, 11)
	monthly, _ := Monthly.CreatePeriod(now)
	quarterly, _ := Quarterly.CreatePeriod(now)
	weekly, _ := Weekly.CreatePeriod(now)

	en := NewFormatter("en_GB")
	assert.Equal(t, "en", en.Locale())
	assert.Equal(t, "February 2026", en.FormatPeriod(monthly))
	assert.Equal(t, "January - March 2026", en.FormatPeriod(quarterly))
	assert.Equal(t, "2026W7 2026-02-09 - 2026-02-15", en.FormatPeriod(weekly))

	fr := NewFormatter("fr")
	assert.Equal(t, "février 2026", fr.FormatPeriod(monthly))

	unknown := NewFormatter("xx")
	assert.Equal(t, "en", unknown.Locale())
}
