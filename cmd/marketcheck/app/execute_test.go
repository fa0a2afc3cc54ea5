package app

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/expansiontools/marketcheck/pkg/errors"
)

func TestReportable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "declined fixes only set the exit status",
			err:  fmt.Errorf("fixes declined: %w", errors.ErrUserDeclined),
			want: false,
		},
		{
			name: "residual issues only set the exit status",
			err:  fmt.Errorf("issues remain after 10 passes: %w", errors.ErrResidualIssues),
			want: false,
		},
		{
			name: "load failures are printed",
			err:  fmt.Errorf("2 folder(s) could not be used: %w", errors.ErrLoadFailed),
			want: true,
		},
		{
			name: "unexpected errors are printed",
			err:  errors.New("boom"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reportable(tt.err))
		})
	}
}
