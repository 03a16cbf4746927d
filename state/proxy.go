package state

import (
	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	ComponentRegistry   = "registry"
	ComponentEmergency  = "emergency"
	ComponentGovernance = "governance"
	ComponentPayment    = "payment"
	ComponentRelay      = "relay"
)

// UpgradableComponents lists every component that sits behind a proxy. The
// compliance ledger is deliberately absent.
var UpgradableComponents = []string{
	ComponentRegistry,
	ComponentEmergency,
	ComponentGovernance,
	ComponentPayment,
	ComponentRelay,
}

var KeyProxy = "x%x"

func deriveAddress(label string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(label))[12:])
}

func ProxyAddress(component string) common.Address {
	return deriveAddress("guardian.proxy." + component)
}

func ImplementationAddress(component string, version uint32) common.Address {
	return deriveAddress(sprintf("guardian.impl.%s.v%d", component, version))
}

var (
	UpgradeControllerAddress = deriveAddress("guardian.upgrade_controller")
	PaymentEscrowAddress     = ProxyAddress(ComponentPayment)
)

type Implementation struct {
	Component string
	Version   uint32
	// Migrate moves state from Version-1 to Version. Nil means the layout did
	// not change.
	Migrate func(s *State) error
}

var knownImplementations = map[common.Address]Implementation{}

func registerImplementation(impl Implementation) {
	knownImplementations[ImplementationAddress(impl.Component, impl.Version)] = impl
}

func init() {
	for _, c := range UpgradableComponents {
		registerImplementation(Implementation{Component: c, Version: 1})
	}
	registerImplementation(Implementation{Component: ComponentRegistry, Version: 2, Migrate: migrateRegistryV2})
	registerImplementation(Implementation{Component: ComponentPayment, Version: 2})
}

// migrateRegistryV2 stamps the layout version into its reserved slot; the
// declared slots keep their positions.
func migrateRegistryV2(s *State) error {
	slots, err := s.configSlots()
	if err != nil {
		return err
	}
	slots[SlotLayoutVersion] = 2
	return s.setConfigSlots(slots)
}

// LatestVersion is the highest schema version this build can migrate
// component to.
func LatestVersion(component string) (latest uint32) {
	for _, impl := range knownImplementations {
		if impl.Component == component && impl.Version > latest {
			latest = impl.Version
		}
	}
	return
}

func LookupImplementation(addr common.Address) (Implementation, bool) {
	impl, ok := knownImplementations[addr]
	return impl, ok
}

type ProxyRecord struct {
	Proxy          common.Address `json:"proxy"`
	Component      string         `json:"component"`
	Implementation common.Address `json:"implementation"`
	Version        uint32         `json:"version"`
}

func proxyComponent(proxy common.Address) (string, bool) {
	for _, c := range UpgradableComponents {
		if ProxyAddress(c) == proxy {
			return c, true
		}
	}
	return "", false
}

func (s *State) Proxy(proxy common.Address) (rec *ProxyRecord, err error) {
	component, ok := proxyComponent(proxy)
	if !ok {
		return nil, wrap(ErrNotAProxy, proxy.Hex())
	}
	rec = new(ProxyRecord)
	found, err := s.getJSON(sprintf(KeyProxy, proxy), rec)
	if err != nil {
		return nil, err
	}
	if !found {
		rec = &ProxyRecord{
			Proxy:          proxy,
			Component:      component,
			Implementation: ImplementationAddress(component, 1),
			Version:        1,
		}
	}
	return
}

// UpgradeTo swaps the implementation behind proxy and runs every migration
// between the current and target versions in order. Only the upgrade
// controller may call it.
func (s *State) UpgradeTo(caller, proxy, impl common.Address) error {
	if caller != UpgradeControllerAddress {
		return wrap(ErrAccessDenied, caller.Hex())
	}
	rec, err := s.Proxy(proxy)
	if err != nil {
		return err
	}
	target, ok := LookupImplementation(impl)
	if !ok || target.Component != rec.Component {
		return wrap(ErrUnknownImplementation, impl.Hex())
	}
	if target.Version <= rec.Version {
		return wrap(ErrStaleImplementation, sprintf("%s v%d <= v%d", rec.Component, target.Version, rec.Version))
	}
	for v := rec.Version + 1; v <= target.Version; v++ {
		step, ok := LookupImplementation(ImplementationAddress(rec.Component, v))
		if !ok {
			return wrap(ErrUnknownImplementation, sprintf("%s v%d", rec.Component, v))
		}
		if step.Migrate != nil {
			if err = step.Migrate(s); err != nil {
				return err
			}
		}
	}
	rec.Implementation = impl
	rec.Version = target.Version
	if err = s.setJSON(sprintf(KeyProxy, proxy), rec); err != nil {
		return err
	}
	s.logger.Info("proxy upgraded", "component", rec.Component, "impl", impl, "version", rec.Version)
	s.emit(types.EncodeEventUpgraded(proxy, impl, rec.Version))
	return nil
}
