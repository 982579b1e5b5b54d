package altsource

import "encoding/json"

// KnownPrivacyTypes lists the privacy category names commonly requested by
// apps. It is not exhaustive; unknown names are accepted but flagged.
var KnownPrivacyTypes = map[string]struct{}{
	"BluetoothAlways": {}, "BluetoothPeripheral": {}, "Calendars": {},
	"Reminders": {}, "Camera": {}, "Microphone": {}, "Contacts": {},
	"FaceID": {}, "DesktopFolder": {}, "DocumentsFolder": {},
	"DownloadsFolder": {}, "NetworkVolumes": {}, "RemovableVolumes": {},
	"FileProviderDomain": {}, "GKFriendList": {},
	"HealthClinicalHealthRecordsShare": {}, "HealthShare": {},
	"HealthUpdate": {}, "HomeKit": {}, "LocationAlwaysAndWhenInUse": {},
	"Location": {}, "LocationWhenInUse": {}, "LocationAlways": {},
	"AppleMusic": {}, "Motion": {}, "FallDetection": {}, "LocalNetwork": {},
	"NearbyInteraction": {}, "NearbyInteractionAllowOnce": {},
	"NFCReader": {}, "PhotoLibraryAdd": {}, "PhotoLibrary": {},
	"UserTracking": {}, "AppleEvents": {}, "SystemAdministration": {},
	"SensorKit": {}, "Siri": {}, "SpeechRecognition": {},
	"VideoSubscriberAccount": {}, "Identity": {},
}

// Entitlement is a single entitlement an app requests.
type Entitlement struct {
	Name string `json:"name"`

	Extra map[string]json.RawMessage `json:"-"`
}

type entitlementAlias Entitlement

var entitlementKeys = jsonKeys(Entitlement{})

// UnmarshalJSON decodes an Entitlement, capturing unknown fields in Extra.
func (e *Entitlement) UnmarshalJSON(data []byte) error {
	var a entitlementAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Extra = extraFields(data, entitlementKeys)
	*e = Entitlement(a)
	return nil
}

// MarshalJSON encodes an Entitlement, splicing Extra back in.
func (e Entitlement) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(entitlementAlias(e))
	if err != nil {
		return nil, err
	}
	return appendExtra(b, e.Extra)
}

// MissingKeys returns the required keys absent from the Entitlement.
func (e *Entitlement) MissingKeys() []string {
	if e.Name == "" {
		return []string{"name"}
	}
	return nil
}

// IsValid reports whether the Entitlement contains all required information.
func (e *Entitlement) IsValid() bool {
	return len(e.MissingKeys()) == 0
}

// PrivacyEntry is a privacy category an app uses together with its usage
// description.
type PrivacyEntry struct {
	Name             string `json:"name"`
	UsageDescription string `json:"usageDescription"`

	Extra map[string]json.RawMessage `json:"-"`
}

type privacyAlias PrivacyEntry

var privacyKeys = jsonKeys(PrivacyEntry{})

// UnmarshalJSON decodes a PrivacyEntry, capturing unknown fields in Extra.
func (p *PrivacyEntry) UnmarshalJSON(data []byte) error {
	var a privacyAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Extra = extraFields(data, privacyKeys)
	*p = PrivacyEntry(a)
	return nil
}

// MarshalJSON encodes a PrivacyEntry, splicing Extra back in.
func (p PrivacyEntry) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(privacyAlias(p))
	if err != nil {
		return nil, err
	}
	return appendExtra(b, p.Extra)
}

// MissingKeys returns the required keys absent from the PrivacyEntry.
func (p *PrivacyEntry) MissingKeys() []string {
	var missing []string
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if p.UsageDescription == "" {
		missing = append(missing, "usageDescription")
	}
	return missing
}

// IsValid reports whether the PrivacyEntry contains all required information.
func (p *PrivacyEntry) IsValid() bool {
	return len(p.MissingKeys()) == 0
}

// IsKnownType reports whether the privacy category name is one of the
// commonly recognized types.
func (p *PrivacyEntry) IsKnownType() bool {
	_, ok := KnownPrivacyTypes[p.Name]
	return ok
}

// Permissions groups the entitlements and privacy usages of an App.
type Permissions struct {
	Entitlements []Entitlement  `json:"entitlements"`
	Privacy      []PrivacyEntry `json:"privacy"`

	Extra map[string]json.RawMessage `json:"-"`
}

type permissionsAlias Permissions

var permissionsKeys = jsonKeys(Permissions{})

// UnmarshalJSON decodes Permissions, capturing unknown fields in Extra.
func (p *Permissions) UnmarshalJSON(data []byte) error {
	var a permissionsAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Extra = extraFields(data, permissionsKeys)
	*p = Permissions(a)
	return nil
}

// MarshalJSON encodes Permissions, splicing Extra back in.
func (p Permissions) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(permissionsAlias(p))
	if err != nil {
		return nil, err
	}
	return appendExtra(b, p.Extra)
}

// MissingKeys returns the required keys absent from the Permissions.
// Permissions itself has no required keys; its entries do.
func (p *Permissions) MissingKeys() []string {
	return nil
}

// IsValid reports whether all entitlements and privacy entries validate.
func (p *Permissions) IsValid() bool {
	for i := range p.Entitlements {
		if !p.Entitlements[i].IsValid() {
			return false
		}
	}
	for i := range p.Privacy {
		if !p.Privacy[i].IsValid() {
			return false
		}
	}
	return true
}

// UnknownPrivacyTypes returns the privacy category names not present in the
// recognized set. Callers flag these but still accept them.
func (p *Permissions) UnknownPrivacyTypes() []string {
	var unknown []string
	for i := range p.Privacy {
		if !p.Privacy[i].IsKnownType() {
			unknown = append(unknown, p.Privacy[i].Name)
		}
	}
	return unknown
}

// Clone returns a deep copy of the Permissions.
func (p *Permissions) Clone() *Permissions {
	if p == nil {
		return nil
	}
	out := Permissions{Extra: cloneExtra(p.Extra)}
	if p.Entitlements != nil {
		out.Entitlements = make([]Entitlement, len(p.Entitlements))
		for i, e := range p.Entitlements {
			e.Extra = cloneExtra(e.Extra)
			out.Entitlements[i] = e
		}
	}
	if p.Privacy != nil {
		out.Privacy = make([]PrivacyEntry, len(p.Privacy))
		for i, pe := range p.Privacy {
			pe.Extra = cloneExtra(pe.Extra)
			out.Privacy[i] = pe
		}
	}
	return &out
}
