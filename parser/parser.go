// Package parser decodes the AD structures of advertising and scan response
// payloads.
package parser

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/rigado/blerf/sliceops"
)

var EmptyOrNilPdu = errors.New("nil/empty pdu")

// MaxLen is the largest legacy advertising or scan response payload.
const MaxLen = 31

// https://www.bluetooth.org/en-us/specification/assigned-numbers/generic-access-profile
var types = struct {
	flags       byte
	uuid16inc   byte
	uuid16comp  byte
	uuid32inc   byte
	uuid32comp  byte
	uuid128inc  byte
	uuid128comp byte
	sol16       byte
	sol32       byte
	sol128      byte
	svc16       byte
	svc32       byte
	svc128      byte
	nameshort   byte
	namecomp    byte
	txpwr       byte
	mfgdata     byte
}{
	flags:       0x01,
	uuid16inc:   0x02,
	uuid16comp:  0x03,
	uuid32inc:   0x04,
	uuid32comp:  0x05,
	uuid128inc:  0x06,
	uuid128comp: 0x07,
	sol16:       0x14,
	sol32:       0x1f,
	sol128:      0x15,
	svc16:       0x16,
	svc32:       0x20,
	svc128:      0x21,
	nameshort:   0x08,
	namecomp:    0x09,
	txpwr:       0x0a,
	mfgdata:     0xff,
}

// Keys of the map returned by Parse.
const (
	KeyFlags       = "flags"
	KeyServices    = "services"
	KeySolicited   = "solicited"
	KeyServiceData = "serviceData"
	KeyLocalName   = "localName"
	KeyTxPower     = "txPower"
	KeyMFG         = "mfg"
)

// UUID is a service UUID as it appears on air, least significant byte first.
type UUID []byte

func (u UUID) String() string {
	return hex.EncodeToString(sliceops.SwapBuf(u))
}

type pduRecord struct {
	arrayElementSz int
	minSz          int
	svcDataUUIDSz  int
	key            string
}

var pduDecodeMap = map[byte]pduRecord{
	types.uuid16inc:   {2, 2, 0, KeyServices},
	types.uuid16comp:  {2, 2, 0, KeyServices},
	types.uuid32inc:   {4, 4, 0, KeyServices},
	types.uuid32comp:  {4, 4, 0, KeyServices},
	types.uuid128inc:  {16, 16, 0, KeyServices},
	types.uuid128comp: {16, 16, 0, KeyServices},
	types.sol16:       {2, 2, 0, KeySolicited},
	types.sol32:       {4, 4, 0, KeySolicited},
	types.sol128:      {16, 16, 0, KeySolicited},
	types.svc16:       {0, 2, 2, KeyServiceData},
	types.svc32:       {0, 4, 4, KeyServiceData},
	types.svc128:      {0, 16, 16, KeyServiceData},
	types.namecomp:    {0, 1, 0, KeyLocalName},
	types.nameshort:   {0, 1, 0, KeyLocalName},
	types.txpwr:       {0, 1, 0, KeyTxPower},
	types.mfgdata:     {0, 1, 0, KeyMFG},
	types.flags:       {0, 1, 0, KeyFlags},
}

func getArray(size int, bytes []byte) ([]UUID, error) {
	//valid size?
	if size <= 0 {
		return nil, fmt.Errorf("invalid size")
	}

	//any remainder?
	count := len(bytes) / size
	rem := len(bytes) % size
	if rem != 0 || count == 0 {
		return nil, fmt.Errorf("incorrect size")
	}

	arr := make([]UUID, 0, count)
	for j := 0; j < len(bytes); j += size {
		arr = append(arr, UUID(bytes[j:(j+size)]))
	}

	return arr, nil
}

// Validate checks that pdu is a well formed sequence of AD structures that
// fits a legacy advertising PDU.
func Validate(pdu []byte) error {
	if len(pdu) > MaxLen {
		return fmt.Errorf("payload of %v bytes exceeds %v", len(pdu), MaxLen)
	}
	if len(pdu) == 0 {
		return nil
	}
	_, err := Parse(pdu)
	return err
}

// Parse decodes the AD structures of pdu into a map keyed by the Key
// constants. Unknown types are skipped.
func Parse(pdu []byte) (map[string]interface{}, error) {
	if len(pdu) == 0 {
		return nil, EmptyOrNilPdu
	}

	m := make(map[string]interface{})
	for i := 0; (i + 1) < len(pdu); {
		//length @ offset 0
		//type @ offset 1
		//data @ 1 - (length-1)
		length := int(pdu[i])
		typ := pdu[i+1]

		if length < 1 {
			return m, fmt.Errorf("invalid record length %v, idx %v", length, i)
		}

		if (i + length) >= len(pdu) {
			return m, fmt.Errorf("buffer overflow: want %v, have %v, idx %v", i+length, len(pdu), i)
		}

		start := i + 2
		end := start + length - 1
		bytes := make([]byte, end-start)
		copy(bytes, pdu[start:end])

		dec, ok := pduDecodeMap[typ]
		if ok && len(bytes) != 0 {
			if dec.minSz > len(bytes) {
				return m, fmt.Errorf("adv type %v: min length %v, have %v, idx %v", typ, dec.minSz, len(bytes), i)
			}

			switch {
			case dec.arrayElementSz > 0:
				arr, err := getArray(dec.arrayElementSz, bytes)
				if err != nil {
					return m, fmt.Errorf("adv type %v, idx %v: %w", typ, i, err)
				}

				v, _ := m[dec.key].([]UUID)
				m[dec.key] = append(v, arr...)

			case dec.svcDataUUIDSz > 0:
				su := UUID(bytes[:dec.svcDataUUIDSz]).String()
				sd := bytes[dec.svcDataUUIDSz:]

				msd, ok := m[dec.key].(map[string]interface{})
				if !ok {
					msd = make(map[string]interface{})
				}
				arr, _ := msd[su].([]interface{})
				msd[su] = append(arr, sd)
				m[dec.key] = msd

			case dec.key == KeyLocalName:
				m[dec.key] = string(bytes)

			default:
				writeOrAppendBytes(m, dec.key, bytes)
			}
		}

		i += length + 1
	}

	return m, nil
}

func writeOrAppendBytes(m map[string]interface{}, key string, data []byte) {
	d, ok := m[key].([]byte)
	if !ok {
		m[key] = data
		return
	}

	if key == KeyMFG && len(data) >= 2 {
		//mfg data contains the company id again in the scan response
		//strip that out
		data = data[2:]
	}
	m[key] = append(d, data...)
}
