package archon

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterService struct {
	total int
}

func (c *counterService) Add(n int) int {
	c.total += n
	return c.total
}

func (c *counterService) Fail() error {
	return errors.New("counterService: always fails")
}

func TestServiceTableRegisterAndLookup(t *testing.T) {
	table := NewServiceTable(4)
	svc := &counterService{}

	require.NoError(t, table.Register("counter", svc))

	found, ok := table.Lookup("counter")
	require.True(t, ok)
	assert.Same(t, svc, found)

	_, ok = table.Lookup("missing")
	assert.False(t, ok)
}

func TestServiceTableRegisterRejectsDuplicateNames(t *testing.T) {
	table := NewServiceTable(4)
	require.NoError(t, table.Register("counter", &counterService{}))

	err := table.Register("counter", &counterService{})
	assert.Error(t, err)
	var dup DuplicateNameError
	assert.ErrorAs(t, err, &dup)
}

func TestServiceTableInvokeCallsMethodByName(t *testing.T) {
	table := NewServiceTable(4)
	svc := &counterService{}
	require.NoError(t, table.Register("counter", svc))

	result, err := table.Invoke("counter", "Add", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, result)

	result, err = table.Invoke("counter", "Add", 4)
	require.NoError(t, err)
	assert.Equal(t, 7, result)
}

func TestServiceTableInvokeSurfacesMethodError(t *testing.T) {
	table := NewServiceTable(4)
	require.NoError(t, table.Register("counter", &counterService{}))

	_, err := table.Invoke("counter", "Fail")
	assert.Error(t, err)
}

func TestServiceTableInvokeUnknownServiceOrMethod(t *testing.T) {
	table := NewServiceTable(4)
	require.NoError(t, table.Register("counter", &counterService{}))

	_, err := table.Invoke("missing", "Add", 1)
	assert.Error(t, err)

	_, err = table.Invoke("counter", "DoesNotExist")
	assert.Error(t, err)
}
