package httpapi

import "github.com/pfworks/model-dispatch/internal/contracts"

// taskDescriptor parameterizes the one handler shared by the five task
// endpoints, per the specification's Design Notes: kind, the JSON field
// the request carries its payload in, and the southbound endpoint to
// forward it to.
type taskDescriptor struct {
	kind            contracts.TaskKind
	northboundPath  string
	payloadKey      string
	backendEndpoint string
	splittable      bool
}

var taskTable = []taskDescriptor{
	{
		kind:            contracts.TaskGeneratePlaybook,
		northboundPath:  "/generate",
		payloadKey:      "commands",
		backendEndpoint: "/generate",
		splittable:      true,
	},
	{
		kind:            contracts.TaskExplainPlaybook,
		northboundPath:  "/explain",
		payloadKey:      "playbook",
		backendEndpoint: "/explain",
	},
	{
		kind:            contracts.TaskGenerateCode,
		northboundPath:  "/generate-code",
		payloadKey:      "description",
		backendEndpoint: "/generate-code",
	},
	{
		kind:            contracts.TaskExplainCode,
		northboundPath:  "/explain-code",
		payloadKey:      "code",
		backendEndpoint: "/explain-code",
	},
	{
		kind:            contracts.TaskChat,
		northboundPath:  "/chat",
		payloadKey:      "message",
		backendEndpoint: "/chat",
	},
}
