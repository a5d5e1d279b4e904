// Package rule holds the types shared by the network and cosmetic rule parsers.
package rule

import "fmt"

// Kind is the closed set of rule kinds the engine understands.
type Kind int8

const (
	KindNetworkBlock Kind = iota
	KindNetworkException
	KindCosmeticHide
	KindCosmeticException
)

func (k Kind) String() string {
	switch k {
	case KindNetworkBlock:
		return "network-block"
	case KindNetworkException:
		return "network-exception"
	case KindCosmeticHide:
		return "cosmetic-hide"
	case KindCosmeticException:
		return "cosmetic-exception"
	default:
		panic(fmt.Sprintf("unknown rule kind %d", int8(k)))
	}
}

// IsException reports whether rules of this kind negate other rules.
func (k Kind) IsException() bool {
	switch k {
	case KindNetworkException, KindCosmeticException:
		return true
	case KindNetworkBlock, KindCosmeticHide:
		return false
	default:
		panic(fmt.Sprintf("unknown rule kind %d", int8(k)))
	}
}

// IsNetwork reports whether rules of this kind apply to network requests.
func (k Kind) IsNetwork() bool {
	switch k {
	case KindNetworkBlock, KindNetworkException:
		return true
	case KindCosmeticHide, KindCosmeticException:
		return false
	default:
		panic(fmt.Sprintf("unknown rule kind %d", int8(k)))
	}
}
