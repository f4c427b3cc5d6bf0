package boilermodbus

// TestBoilerRelay is an in-memory relay for tests.
type TestBoilerRelay struct {
	Demand    bool
	OpenErr   error
	WriteErr  error
	SetCalls  int
	openCount int
}

func (t *TestBoilerRelay) Open() error {
	if t.OpenErr != nil {
		return t.OpenErr
	}
	t.openCount++
	return nil
}

func (t *TestBoilerRelay) Close() error {
	return nil
}

func (t *TestBoilerRelay) SetDemand(demand bool) error {
	if t.WriteErr != nil {
		return t.WriteErr
	}
	t.Demand = demand
	t.SetCalls++
	return nil
}

func (t *TestBoilerRelay) GetDemand() (bool, error) {
	return t.Demand, nil
}
