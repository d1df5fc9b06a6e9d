package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   PaginationOptions
		want PaginationOptions
	}{
		{"zero", PaginationOptions{}, PaginationOptions{Page: 1, PageSize: DefaultPageSize}},
		{"too large", PaginationOptions{Page: 3, PageSize: 5000}, PaginationOptions{Page: 3, PageSize: MaxPageSize}},
		{"valid", PaginationOptions{Page: 2, PageSize: 50}, PaginationOptions{Page: 2, PageSize: 50}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Normalize())
		})
	}
	assert.Equal(t, 50, PaginationOptions{Page: 2, PageSize: 50}.Offset())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, PaginationOptions{Page: 1, PageSize: 2}, 5)
	assert.Equal(t, 3, p.Page.Pages)
	assert.True(t, p.HasNext())
	assert.False(t, p.Empty)
}

func TestSalaryRange(t *testing.T) {
	assert.True(t, SalaryRange{Min: 50, Max: 80}.IsComplete())
	assert.False(t, SalaryRange{Min: 90, Max: 80}.IsComplete())
	assert.True(t, SalaryRange{}.IsEmpty())
}

func TestWorkSettingEqual(t *testing.T) {
	assert.True(t, WorkSetting("Remote").Equal(WorkSettingRemote))
	assert.False(t, WorkSetting("").IsSet())
}
