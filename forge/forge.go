/*
Copyright 2026 The Bors Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package forge talks to the GitHub-compatible forge on behalf of the
// merge queue: reading branch heads, performing trial merges,
// force-pushing, managing check runs, and posting comments.
package forge

import (
	"context"

	gogithub "github.com/google/go-github/v82/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Client wraps google/go-github to satisfy the tick engine's forge
// contract. A zero-value Client is not usable; construct with New.
type Client struct {
	gh  *gogithub.Client
	log *logrus.Entry

	// dryRun, when true, logs every mutating call instead of making
	// it, matching the teacher's dry-run client mode.
	dryRun bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a GitHub Enterprise instance
// instead of github.com.
func WithBaseURL(apiURL, uploadURL string) Option {
	return func(c *Client) {
		var err error
		c.gh.BaseURL, err = c.gh.BaseURL.Parse(apiURL)
		if err != nil {
			c.log.WithError(err).Warn("invalid forge base URL, keeping default")
			return
		}
		c.gh.UploadURL, err = c.gh.UploadURL.Parse(uploadURL)
		if err != nil {
			c.log.WithError(err).Warn("invalid forge upload URL, keeping default")
		}
	}
}

// WithDryRun returns an Option that puts the client in dry-run mode:
// mutating calls are logged, not sent.
func WithDryRun() Option {
	return func(c *Client) { c.dryRun = true }
}

// New builds a Client authenticated with token.
func New(token string, logger *logrus.Entry, opts ...Option) *Client {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	c := &Client{
		gh:  gogithub.NewClient(httpClient),
		log: logger.WithField("component", "forge"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) logDryRun(action string, fields logrus.Fields) bool {
	if !c.dryRun {
		return false
	}
	c.log.WithFields(fields).Infof("dry-run: would %s", action)
	return true
}
