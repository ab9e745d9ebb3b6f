package delay

const (
	luaSaveArchive = `
		-- Atomically replace the persisted archive
		-- KEYS[1] = record list key
		-- KEYS[2] = clock key
		-- ARGV[1] = clock
		-- ARGV[2..N] = record data (JSON)
		-- Returns: number of records stored

		redis.call('DEL', KEYS[1])
		redis.call('SET', KEYS[2], ARGV[1])

		local chunkSize = 128
		local startIdx = 2

		while startIdx <= #ARGV do
			local endIdx = math.min(startIdx + chunkSize - 1, #ARGV)
			local chunk = {}
			for i = startIdx, endIdx do
				table.insert(chunk, ARGV[i])
			end
			redis.call('RPUSH', KEYS[1], unpack(chunk))
			startIdx = endIdx + 1
		end

		return redis.call('LLEN', KEYS[1])
		`

	luaLoadArchive = `
		-- Read the persisted archive
		-- KEYS[1] = record list key
		-- KEYS[2] = clock key
		-- Returns: {clock, records}

		local clock = redis.call('GET', KEYS[2]) or "0"
		local records = redis.call('LRANGE', KEYS[1], 0, -1)
		return {clock, records}
		`
)
