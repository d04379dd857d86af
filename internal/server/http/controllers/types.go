package controllers

import "github.com/rzbill/bee/internal/hive"

type keysResponse struct {
	Messages string `json:"messages"`
	Writer   string `json:"writer"`
	Errors   string `json:"errors"`
}

type statusResponse struct {
	hive.Status
	LeaseMode string       `json:"leaseMode"`
	Keys      keysResponse `json:"keys"`
}
