package command

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	TypeProvideThrottlingState    = "provideThrottlingState"
	TypeMeasurementIntervalChange = "measurementIntervalChange"
	TypeThrottlingSpecification   = "throttlingSpecification"
)

// List is the commandList document delivered to the event source.
type List struct {
	CommandList []Entry `json:"commandList"`
}

type Entry struct {
	Command Command `json:"command"`
}

// Command is one entry of a command list. Only the fields that belong to
// CommandType are set.
type Command struct {
	CommandType                      string        `json:"commandType"`
	MeasurementInterval              *int          `json:"measurementInterval,omitempty"`
	EventDomainThrottleSpecification *ThrottleSpec `json:"eventDomainThrottleSpecification,omitempty"`
}

type ThrottleSpec struct {
	EventDomain           string    `json:"eventDomain"`
	SuppressedFieldNames  []string  `json:"suppressedFieldNames,omitempty"`
	SuppressedNvPairsList []NvPairs `json:"suppressedNvPairsList,omitempty"`
}

type NvPairs struct {
	NvPairFieldName       string   `json:"nvPairFieldName"`
	SuppressedNvPairNames []string `json:"suppressedNvPairNames"`
}

func ProvideThrottlingState() Entry {
	return Entry{Command: Command{CommandType: TypeProvideThrottlingState}}
}

func MeasurementIntervalChange(interval int) Entry {
	return Entry{Command: Command{
		CommandType:         TypeMeasurementIntervalChange,
		MeasurementInterval: &interval,
	}}
}

// ThrottlingSpecification suppresses fields and name/value pairs of one
// event domain. Empty fields and pairs reset the domain.
func ThrottlingSpecification(domain string, fields []string, pairs []NvPairs) Entry {
	return Entry{Command: Command{
		CommandType: TypeThrottlingSpecification,
		EventDomainThrottleSpecification: &ThrottleSpec{
			EventDomain:           domain,
			SuppressedFieldNames:  fields,
			SuppressedNvPairsList: pairs,
		},
	}}
}

func SuppressedNvPairs(field string, names ...string) NvPairs {
	return NvPairs{NvPairFieldName: field, SuppressedNvPairNames: names}
}

func NewList(entries ...Entry) List {
	if entries == nil {
		entries = []Entry{}
	}
	return List{CommandList: entries}
}

func (l List) Marshal() (json.RawMessage, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("error marshaling command list: %w", err)
	}
	return data, nil
}

// Summarize describes the command types in a raw command list for logging.
// Documents that are not command lists are described as such.
func Summarize(raw []byte) string {
	var list List
	if err := json.Unmarshal(raw, &list); err != nil {
		return "not a command list"
	}
	if len(list.CommandList) == 0 {
		return "empty command list"
	}

	parts := make([]string, 0, len(list.CommandList))
	for _, e := range list.CommandList {
		c := e.Command
		switch c.CommandType {
		case TypeMeasurementIntervalChange:
			if c.MeasurementInterval != nil {
				parts = append(parts, fmt.Sprintf("%s(%d)", c.CommandType, *c.MeasurementInterval))
				continue
			}
		case TypeThrottlingSpecification:
			if s := c.EventDomainThrottleSpecification; s != nil {
				parts = append(parts, fmt.Sprintf("%s(%s)", c.CommandType, s.EventDomain))
				continue
			}
		case "":
			parts = append(parts, "unknown")
			continue
		}
		parts = append(parts, c.CommandType)
	}
	return strings.Join(parts, ", ")
}

// Preset returns a named example command list.
func Preset(name string) (List, bool) {
	build, ok := presets[name]
	if !ok {
		return List{}, false
	}
	return build(), true
}

// PresetNames lists the available presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var presets = map[string]func() List{
	"empty": func() List { return NewList() },
	"provide": func() List {
		return NewList(ProvideThrottlingState())
	},
	"interval": func() List {
		return NewList(MeasurementIntervalChange(10))
	},
	"fault-suppress-fields": func() List {
		return NewList(ThrottlingSpecification("fault",
			[]string{"alarmInterfaceA", "alarmAdditionalInformation"}, nil))
	},
	"fault-suppress-pairs": func() List {
		return NewList(ThrottlingSpecification("fault", nil,
			[]NvPairs{SuppressedNvPairs("alarmAdditionalInformation", "name1", "name2")}))
	},
	"fault-suppress-fields-and-pairs": func() List {
		return NewList(ThrottlingSpecification("fault",
			[]string{"alarmInterfaceA"},
			[]NvPairs{SuppressedNvPairs("alarmAdditionalInformation", "name1", "name2")}))
	},
	"measurements-suppress": func() List {
		return NewList(ThrottlingSpecification("measurementsForVfScaling",
			[]string{"numberOfMediaPortsInUse", "aggregateCpuUsage"},
			[]NvPairs{SuppressedNvPairs("cpuUsageArray", "cpu1", "cpu3")}))
	},
	"mobile-flow-suppress": func() List {
		return NewList(ThrottlingSpecification("mobileFlow",
			[]string{"radioAccessTechnology", "samplingAlgorithm"}, nil))
	},
	"state-change-suppress": func() List {
		return NewList(ThrottlingSpecification("stateChange",
			[]string{"reportingEntityId", "eventType", "sourceId"},
			[]NvPairs{SuppressedNvPairs("additionalFields", "Name1")}))
	},
	"syslog-suppress": func() List {
		return NewList(ThrottlingSpecification("syslog",
			[]string{"syslogFacility", "syslogProc", "syslogProcId"},
			[]NvPairs{SuppressedNvPairs("additionalFields", "Name1", "Name4")}))
	},
	"reset-all-domains": func() List {
		return NewList(
			ThrottlingSpecification("fault", nil, nil),
			ThrottlingSpecification("measurementsForVfScaling", nil, nil),
			ThrottlingSpecification("mobileFlow", nil, nil),
			ThrottlingSpecification("stateChange", nil, nil),
			ThrottlingSpecification("syslog", nil, nil),
		)
	},
	"mixed": func() List {
		return NewList(
			ThrottlingSpecification("fault",
				[]string{"alarmInterfaceA"},
				[]NvPairs{SuppressedNvPairs("alarmAdditionalInformation", "name1", "name2")}),
			MeasurementIntervalChange(10),
			ProvideThrottlingState(),
		)
	},
}
