package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	typeString = "string"
	typeInt    = "int"
)

var (
	errInvalidJSON = errors.New("input is not valid JSON")
	errNoMatch     = errors.New("selector matched nothing")
)

// selectInput returns raw, or the value at selector when raw is a JSON document.
func selectInput(raw, selector string) (string, error) {
	if selector == "" {
		return raw, nil
	}
	if !gjson.Valid(raw) {
		return "", errInvalidJSON
	}
	result := gjson.Get(raw, selector)
	if !result.Exists() {
		return "", fmt.Errorf("%w: %s", errNoMatch, selector)
	}
	return result.String(), nil
}

func parseString(s string) (string, error) {
	return s, nil
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid int input %q", s)
	}
	return n, nil
}
