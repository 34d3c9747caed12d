package record

// Query templates, kept alongside the adapter as named constants rather than
// behind an ORM, mirroring the inline-SQL style used for the rest of the
// record store.
const (
	getOrInsertTenant = `
		INSERT INTO tenants (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id`
	selectTenantByName = `SELECT id FROM tenants WHERE name = $1`

	getOrInsertService = `
		INSERT INTO services (tenant_id, name) VALUES ($1, $2)
		ON CONFLICT (tenant_id, name) DO NOTHING
		RETURNING id`
	selectServiceByName = `SELECT id FROM services WHERE tenant_id = $1 AND name = $2`

	getOrInsertEnvironment = `
		INSERT INTO environments (service_id, name) VALUES ($1, $2)
		ON CONFLICT (service_id, name) DO NOTHING
		RETURNING id`
	selectEnvironmentByName = `SELECT id FROM environments WHERE service_id = $1 AND name = $2`

	insertEndpoint = `
		INSERT INTO endpoints (environment_id, version, url, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, true, now(), now())
		ON CONFLICT (environment_id, version) DO NOTHING
		RETURNING id, url, is_active, created_at, updated_at`

	selectEndpointByVersion = `
		SELECT id, url, is_active, created_at, updated_at
		FROM endpoints
		WHERE environment_id = $1 AND version = $2`

	selectActiveEndpoint = `
		SELECT e.id, e.url, e.is_active, e.created_at, e.updated_at
		FROM endpoints e
		JOIN environments env ON env.id = e.environment_id
		JOIN services svc ON svc.id = env.service_id
		JOIN tenants t ON t.id = svc.tenant_id
		WHERE t.name = $1 AND svc.name = $2 AND env.name = $3 AND e.version = $4 AND e.is_active = true`

	updateEndpointActive = `
		UPDATE endpoints SET is_active = $1, updated_at = now()
		WHERE id = $2
		RETURNING id, url, is_active, created_at, updated_at`
)
