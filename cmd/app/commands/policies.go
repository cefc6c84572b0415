package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
)

const capabilitiesHelp = "Available capabilities: read, write, delete, tokenize, detokenize, rotate"

// readPolicies parses policiesJSON, or prompts for policies when it is empty.
// current is shown before prompting and may be nil.
func readPolicies(
	tuple IOTuple,
	policiesJSON string,
	current []authDomain.PolicyDocument,
) ([]authDomain.PolicyDocument, error) {
	var policies []authDomain.PolicyDocument
	if policiesJSON != "" {
		if err := json.Unmarshal([]byte(policiesJSON), &policies); err != nil {
			return nil, fmt.Errorf("failed to parse policies JSON: %w", err)
		}
	} else {
		var err error
		policies, err = promptForPolicies(tuple, current)
		if err != nil {
			return nil, fmt.Errorf("failed to get policies: %w", err)
		}
	}

	if len(policies) == 0 {
		return nil, fmt.Errorf("at least one policy is required")
	}
	return policies, nil
}

// promptForPolicies reads policy documents until the operator declines to add
// another one.
func promptForPolicies(
	tuple IOTuple,
	current []authDomain.PolicyDocument,
) ([]authDomain.PolicyDocument, error) {
	reader := bufio.NewReader(tuple.Reader)
	writer := tuple.Writer

	if len(current) > 0 {
		_, _ = fmt.Fprintln(writer, "\nCurrent policies:")
		writePolicies(writer, current)
	}

	_, _ = fmt.Fprintln(writer, "\nEnter policies for the client")
	_, _ = fmt.Fprintln(writer, capabilitiesHelp)
	_, _ = fmt.Fprintln(writer)

	var policies []authDomain.PolicyDocument
	for policyNum := 1; ; policyNum++ {
		_, _ = fmt.Fprintf(writer, "Policy #%d\n", policyNum)

		path, err := prompt(reader, writer, "Enter path pattern (e.g., '/v1/vaults/cards/*' or '*'): ")
		if err != nil {
			return nil, fmt.Errorf("failed to read path: %w", err)
		}
		if path == "" {
			return nil, fmt.Errorf("path cannot be empty")
		}

		capsInput, err := prompt(reader, writer, "Enter capabilities (comma-separated, e.g., 'read,tokenize'): ")
		if err != nil {
			return nil, fmt.Errorf("failed to read capabilities: %w", err)
		}
		capabilities, err := parseCapabilities(capsInput)
		if err != nil {
			return nil, err
		}

		policies = append(policies, authDomain.PolicyDocument{Path: path, Capabilities: capabilities})

		addAnother, err := prompt(reader, writer, "Add another policy? (y/n): ")
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		if answer := strings.ToLower(addAnother); answer != "y" && answer != "yes" {
			return policies, nil
		}
		_, _ = fmt.Fprintln(writer)
	}
}

func prompt(reader *bufio.Reader, writer io.Writer, label string) (string, error) {
	_, _ = fmt.Fprint(writer, label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// parseCapabilities converts a comma-separated list, rejecting unknown names.
func parseCapabilities(input string) ([]authDomain.Capability, error) {
	var capabilities []authDomain.Capability
	for part := range strings.SplitSeq(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		capability, err := authDomain.ParseCapability(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, part)
		}
		capabilities = append(capabilities, capability)
	}

	if len(capabilities) == 0 {
		return nil, fmt.Errorf("at least one capability is required")
	}
	return capabilities, nil
}

func writePolicies(writer io.Writer, policies []authDomain.PolicyDocument) {
	for i, policy := range policies {
		names := make([]string, len(policy.Capabilities))
		for j, capability := range policy.Capabilities {
			names[j] = string(capability)
		}
		_, _ = fmt.Fprintf(writer, "  %d. Path: %s, Capabilities: [%s]\n", i+1, policy.Path, strings.Join(names, ", "))
	}
}
