package infra

const (
	// RedisNamespace isolates the vault's keys inside a shared Redis.
	RedisNamespace = "agentvault"
)

// Sets holding warm operator state.
const (
	RedisKeyBlockedAgents         = RedisNamespace + ":agents:blocked_set"
	RedisKeySandboxAgents         = RedisNamespace + ":agents:sandbox_set"
	RedisKeyQuarantineAgents      = RedisNamespace + ":agents:quarantine_set"
	RedisKeyLockBlocked           = RedisNamespace + ":lock:warmup:blocked"
	RedisKeyLockBlockedSandbox    = RedisNamespace + ":lock:warmup_sandbox:blocked"
	RedisKeyLockBlockedQuarantine = RedisNamespace + ":lock:warmup_quarantine:blocked"
)

// Pub/Sub channels. Agent signals carry "0xAgentAddress:on|off".
const (
	// RedisChanApprovals broadcasts approval slot changes as JSON.
	RedisChanApprovals  = RedisNamespace + ":approvals"
	RedisChanKillSwitch = RedisNamespace + ":agents:kill-switch-signal"
	RedisChanSandbox    = RedisNamespace + ":agents:sandbox-signal"
	RedisChanQuarantine = RedisNamespace + ":agents:quarantine-signal"
)
