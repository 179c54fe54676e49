package fx

import (
	"testing"

	"vintage-stats/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestModuleGraphResolves(t *testing.T) {
	err := fx.ValidateApp(
		Module,
		fx.Invoke(func(*service.Runner) {}),
	)
	require.NoError(t, err)
}
