package convert

import "github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/errcode"

var errOutOfRange = errcode.OutOfRange
