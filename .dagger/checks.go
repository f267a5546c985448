package main

import (
	"context"
	"fmt"
)

// +check
func (m *PortregDev) IsFmted(ctx context.Context) error {
	if empty, err := m.Fmt(ctx).IsEmpty(ctx); err != nil {
		return err
	} else if !empty {
		return fmt.Errorf("source is not formatted (run `dagger call fmt`)")
	}

	return nil
}

// +check
func (m *PortregDev) TestsPass(ctx context.Context) error {
	_, err := m.Test(ctx)
	return err
}

// +check
func (m *PortregDev) IsVetted(ctx context.Context) error {
	_, err := m.Vet(ctx)
	return err
}
