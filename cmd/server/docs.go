// Package main Praxis API
//
//	@title						Praxis API
//	@version					1.0
//	@description				Praxis subscription checkout API
//
//	@contact.name				Praxis Support
//	@contact.url				https://praxis.app/suporte
//
//	@license.name				Proprietary
//
//	@host						localhost:8080
//	@BasePath					/api
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token from the identity provider. Format: "Bearer {token}"
//
//	@tag.name					Checkout
//	@tag.description			Billing creation and subscription lookup
package main
