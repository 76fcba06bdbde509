package peerswap

const (
	defaultTakerFeeBps uint16 = 2
	defaultMakerFeeBps uint16 = 1
)

// InstantiateParams carries the optional fee rates chosen at genesis. Nil
// rates fall back to taker 2 bp and maker 1 bp.
type InstantiateParams struct {
	TakerFeeBps *uint16
	MakerFeeBps *uint16
}

// Instantiate writes the initial configuration with admin as the operator
// and records the contract name and version. It fails when called twice.
func (e *Engine) Instantiate(admin [20]byte, params InstantiateParams) (*Result, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.ConfigGet(); err != nil {
		return nil, err
	} else if ok {
		return nil, errAlreadyInitialised
	}
	cfg := &Config{
		Admin:       admin,
		Active:      true,
		TakerFeeBps: defaultTakerFeeBps,
		MakerFeeBps: defaultMakerFeeBps,
	}
	if params.TakerFeeBps != nil {
		cfg.TakerFeeBps = *params.TakerFeeBps
	}
	if params.MakerFeeBps != nil {
		cfg.MakerFeeBps = *params.MakerFeeBps
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := e.state.ContractInfoPut(&ContractInfo{Name: ContractName, Version: ContractVersion}); err != nil {
		return nil, err
	}
	if err := e.state.ConfigPut(cfg); err != nil {
		return nil, err
	}
	return &Result{Event: NewInstantiatedEvent(cfg)}, nil
}

// SetActive pauses or resumes offer creation. Existing offers stay swappable
// and cancelable either way. Only the admin may call it.
func (e *Engine) SetActive(sender [20]byte, active bool) (*Result, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if sender != cfg.Admin {
		return nil, ErrUnauthorized
	}
	cfg.Active = active
	if err := e.state.ConfigPut(cfg); err != nil {
		return nil, err
	}
	return &Result{Event: NewSetActiveEvent(active)}, nil
}
