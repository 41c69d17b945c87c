// Package vaultsdk is the Go client for the vault savings service.
//
// The package serves double duty: handlers in the service import its request
// and response types so the wire contract lives in one place, and external
// callers (including the end-to-end tests) use the Client/Session pair to
// drive the API.
//
// # Getting started
//
//	client := vaultsdk.NewClient("http://localhost:8080")
//	session, err := client.Register(ctx, "alice", "a strong password")
//	if err != nil {
//		return err
//	}
//
//	goal, err := session.CreateGoal(ctx, "holiday", "500")
//	if err != nil {
//		return err
//	}
//	_, err = session.Deposit(ctx, goal.ID, "40", "deposit-2025-06-01")
//
// # Two-factor logins
//
// When an account has 2FA enabled, Login returns *TwoFactorRequiredError:
//
//	session, err := client.Login(ctx, "alice", password)
//	var challenge *vaultsdk.TwoFactorRequiredError
//	if errors.As(err, &challenge) {
//		session, err = client.CompleteTwoFactor(ctx, challenge.ChallengeToken, code)
//	}
//
// # Step-up
//
// External wallet withdrawals require a fresh PIN or 2FA verification. The
// step-up token returned by VerifyPin/VerifyTwoFactor is short-lived and is
// passed per-request:
//
//	stepUp, err := session.VerifyPin(ctx, "123456")
//	if err != nil {
//		return err
//	}
//	_, err = session.WalletWithdraw(ctx, "25", address, stepUp.StepUpToken, "")
//
// Sessions refresh their access token automatically and transparently manage
// the CSRF cookie/header pair on mutating requests.
package vaultsdk
